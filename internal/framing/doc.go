// Package framing owns the byte-stream wire format.
//
// Ownership boundary:
// - frame encode (length prefix, sync-byte escaping, checksum)
// - streaming decode with resynchronization after corruption
// - checksum rules, including the broadcast-frame divergence
package framing
