// Package engine is the composition root of mcpchat. It turns a Config into a
// Client that owns the session pool, the tool registry, the dispatcher, the
// conversation driver and the chat completer, and exposes them through a small
// frontend-agnostic API. Close is the single unwind point for every session.
package engine
