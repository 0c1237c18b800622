// Package api contains the HTTP handlers: task admission and polling for
// the three asynchronous task types, queue introspection, and synchronous
// image text recognition.
package api
