// Package reconcile provides the single code path every optimistic mutation
// in the client goes through: apply locally, call the server, replay the
// captured snapshot if the server says no.
package reconcile

import (
	"context"
	"fmt"
)

// MutationError wraps a failed remote call whose optimistic local mutation
// has already been rolled back. The caller may surface it to the user; local
// state is consistent by the time it is returned.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed, local state reverted: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Run applies an optimistic mutation, issues the authoritative remote call,
// and compensates on failure.
//
// mutate runs synchronously and must capture its rollback snapshot before
// changing any state. compensate must replay that snapshot verbatim, never
// an inverse computed from current state: other handlers may have run while
// the remote call was in flight, and recomputing would double-revert.
func Run[S any](ctx context.Context, op string, mutate func() S, remote func(context.Context) error, compensate func(S)) error {
	snapshot := mutate()
	if err := remote(ctx); err != nil {
		compensate(snapshot)
		return &MutationError{Op: op, Err: err}
	}
	return nil
}
