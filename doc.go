// Package httpmsg implements an asynchronous HTTP client message
// engine: the Message object representing one in-flight HTTP
// request/response pair, its lifecycle state machine, and the
// extensible handler pipeline that drives automatic behaviors such as
// redirection and authentication retry.
//
// # Scope
//
// In scope: the message state machine and its interaction with the
// transfer layer; the handler pipeline (per-message and process-wide
// handlers, their event/filter dispatch, and the feedback loop by
// which a handler can requeue, abort, restart, or continue
// processing); the built-in handlers for 3xx redirects, 401/407
// authentication retry, and time-bounded handlers; and the ownership
// and cancellation contract that lets a callback safely destroy or
// resurrect its own message.
//
// Out of scope, treated as external collaborators (see the Engine
// interface and endpoint.Context): the socket transfer engine, the
// connection pool, URL parsing, authentication scheme
// implementations, HTTP wire (de)serialization, and the ambient event
// loop's I/O readiness machinery (see package loop for the timer/post
// seam this engine does need).
//
// # Concurrency
//
// Scheduling is single-threaded cooperative atop one event loop
// (package loop). All state transitions, handler callbacks, and timer
// fires are expected to run on that loop; the package is not safe
// under concurrent mutation of a single Message from multiple
// goroutines.
package httpmsg
