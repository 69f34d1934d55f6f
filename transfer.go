package httpmsg

// The types in this file are the external collaborator contracts
// spec.md §6 describes ("To the transfer engine"). Their
// implementation — socket byte pumping, chunked encoding, the
// connection pool — is deliberately out of scope (spec.md §1); this
// engine only needs to hold handles to them and know how to cancel or
// release them. Package enginetest provides an in-memory fake
// satisfying these contracts for tests.

// ConnectHandle represents a pending connection attempt. CancelConnect
// must be idempotent.
type ConnectHandle interface {
	CancelConnect()
}

// TransferHandle represents an in-flight read or write operation.
// Cancel must be idempotent.
type TransferHandle interface {
	Cancel()
}

// Connection represents a connection owned by a Message, checked out
// from the transfer engine's connection pool. Release returns it to
// the pool (or closes it); it must be idempotent.
type Connection interface {
	Release()
}

// Engine is the transfer subsystem's entry point: given a Message,
// start driving it over the wire, returning a read handle and a write
// handle. Cancellation of each handle is independent and idempotent.
//
// Engine is also expected to call RunHandlers(msg, event) as the
// message reaches PREPARE, HEADERS, DATA, DATA_SENT, and FINISHED —
// that signaling contract is spec.md §6's "signal lifecycle events
// into run_handlers" and is invoked by the engine, not by this
// package, which is why it does not appear as a method here.
type Engine interface {
	// StartRequest begins connecting/sending msg. On success it
	// returns the read and write transfer handles the Message will
	// hold until FINISHED or cancellation.
	StartRequest(msg *Message) (read, write TransferHandle, err error)

	// CancelConnect aborts a pending connect for msg, if any.
	CancelConnect(msg *Message)
}
