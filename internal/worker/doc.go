// Package worker contains the background side of the task pipeline: the
// dispatcher loop that drains the admission queue, the per-type task
// handlers, terminal-state finalization with best-effort callback
// delivery, and the retention sweeper that purges aged records.
package worker
