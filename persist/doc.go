// Package persist stores built indexes so they can be reloaded without
// rebuilding.
//
// A persisted index is a 16-byte little-endian header followed by the
// index's binary payload:
//
//	[magic "NNIX"][version u16][kind u8][compression u8]
//	[uncompressed size u32][stored size u32][payload]
//
// The payload may be LZ4 or ZSTD compressed. When compression does not
// shrink it below 90% of its size, it is stored uncompressed and the header
// records CompressionNone.
package persist
