// Package wire implements the framing used between the host and its puppet
// workers.
//
// Every command travels as one frame:
//
//	[u32 remainingLength][u32 counter][payload]
//
// Integers are little-endian. remainingLength counts the bytes after itself,
// so the payload is remainingLength-4 bytes long. The payload is a JSON
// envelope naming the command kind.
//
// Counters exist for loss detection only. Each direction has its own counter
// and a receiver expects every frame to carry the previous counter plus one.
// There is no retransmission: a gap is reported and the stream goes on.
package wire
