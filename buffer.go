package httpmsg

// Ownership controls who is responsible for the lifetime of a
// Buffer's bytes (spec.md §3 "Data Buffer").
type Ownership int

const (
	// SystemOwned buffers are freed when the owning Message is freed.
	SystemOwned Ownership = iota
	// UserOwned buffers are left alone by Free; the caller allocated
	// them and retains responsibility for them.
	UserOwned
	// Static buffers point at memory with a lifetime the engine
	// assumes outlives the Message (e.g. a package-level constant);
	// Free does nothing to them, same as UserOwned, but the distinct
	// tag documents intent at the call site.
	Static
)

// Buffer is the request/response body container described by
// spec.md §3. Bytes is nil until data has been written or read.
type Buffer struct {
	Ownership Ownership
	Bytes     []byte
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Bytes)
}

// free releases b's bytes iff b is SystemOwned, per Message.Free's
// contract (spec.md §4.2).
func (b *Buffer) free() {
	if b == nil || b.Ownership != SystemOwned {
		return
	}
	b.Bytes = nil
}
