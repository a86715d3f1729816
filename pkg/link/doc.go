// Package link reads chunks from a serial link.
package link

// A serial link carries either a binary camera stream or a textual
// telemetry stream. Neither has length prefixes or checksums: the decoders
// in the camera and telemetry sub-packages accumulate chunks, search for
// markers and keep the unconsumed remainder for the next chunk. Recovery
// from corrupted data relies solely on the next marker.
//
// Reads are expected to use a bounded timeout so a reader can observe
// cancellation promptly. A timeout shows up either as a zero-byte read or
// as an error satisfying os.IsTimeout; both are treated as "no data yet".
