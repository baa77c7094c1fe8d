// Package binutil holds the byte-level helpers the archive builder relies on:
// the ZIP/ISO-3309 CRC-32, little-endian field packing, and ordered
// concatenation.
package binutil
