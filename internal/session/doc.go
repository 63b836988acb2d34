// Package session defines the per-thread dialog state and the in-memory
// store that serializes access to it.
//
// # Locking
//
// Every session has its own lock. Store.Update holds it for the whole
// mutation, including any remote calls made while producing the next
// state, so inputs for one thread are applied strictly one at a time.
// Inputs for different threads proceed in parallel.
//
// Sessions are removed as soon as Update stores a terminal stage.
// Sessions are not persisted; a restart drops every open dialog.
package session
