// Package imaging converts a decoded JPEG or PNG into WebP or AVIF.
//
// Pipeline.Convert decodes at natural size, rasterises to RGBA, and hands the
// frame to the encoder for the requested format. WebP is encoded in process;
// AVIF goes through the encode channel. Every encoder output is checked
// against the container signature of its format before it is accepted.
package imaging
