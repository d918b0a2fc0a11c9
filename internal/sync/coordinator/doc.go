// Package coordinator runs sync cycles when the job's trigger fires.
//
// It sits on top of sync.Manager and handles:
//
//   - Polling the trigger store for a due trigger, with jitter
//   - Resolving the sync options at the start of every cycle
//   - Overlap protection through a run lock keyed on the job name
//   - Advancing the trigger to its next boundary after a cycle
//   - Status persistence and metrics
//   - Graceful shutdown
//
// # Core Interface
//
//	type Coordinator interface {
//	    Start(ctx context.Context) error
//	    Stop() error
//	    RunNow(ctx context.Context) (*sync.Result, error)
//	    Status(ctx context.Context) (*status.SyncStatus, error)
//	}
//
// Start blocks until the context is cancelled or Stop is called. RunNow runs
// one cycle immediately under the same run lock and returns ErrAlreadyRunning
// when a cycle is in flight, in this process or in another one sharing the
// lock directory.
//
// # Trigger Flow
//
//  1. The poll ticker fires
//  2. The earliest trigger of the job is loaded; nothing happens if the job
//     is not activated or the trigger is not due
//  3. The run lock is taken and one cycle is performed
//  4. Every due trigger of the job is moved to its first boundary after now,
//     so missed runs collapse into one
//
// # Error Handling
//
// Cycle failures are logged, persisted in the status and counted in the
// metrics. They never stop the coordinator; the next firing is the retry.
package coordinator
