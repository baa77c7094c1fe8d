// Package archive assembles uncompressed (stored) ZIP containers from named
// payloads.
//
// Every entry is written with compression method 0 and the UTF-8 filename
// flag. Timestamps are zero and the archive is always single-disk; there is
// no ZIP64 support, so entry counts, sizes, and offsets must fit the classic
// 16/32-bit fields. Image outputs are already compressed, which is why no
// deflate pass is attempted.
//
// Build reads every entry completely before emitting anything; an entry that
// cannot be read in full aborts the whole build.
package archive
