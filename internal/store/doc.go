// Package store defines the task record persistence interface and the
// record document model shared by every backend. The interfaces abstract
// the underlying storage mechanism (in-memory map, flat files, Redis, or
// PostgreSQL) from the application's core logic, allowing the task
// lifecycle to remain independent of specific persistence details.
package store
