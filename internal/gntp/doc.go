// Package gntp owns the GNTP wire contract and the per-connection
// protocol engine.
//
// Ownership boundary:
// - request line grammar and protocol error taxonomy
// - salted-hash authentication and symmetric block decryption
// - header block / resource sub-protocol parsing primitives
// - per-connection request state machine and response framing
//
// Registry, notification sink, and resource store are collaborator
// interfaces injected by the caller; this package never stores state
// across connections.
package gntp
