package migrate

import (
	"context"
	"fmt"
)

// Decision answers a pre-existing destination index.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionOverwrite
	DecisionSkipAll
)

func (d Decision) String() string {
	switch d {
	case DecisionOverwrite:
		return "overwrite"
	case DecisionSkipAll:
		return "skip-all"
	case DecisionSkip:
		return "skip"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// ConflictResolver decides what to do when the destination index of u
// already exists.
type ConflictResolver interface {
	Resolve(ctx context.Context, u Unit) (Decision, error)
}

// ResolverFunc adapts a function to ConflictResolver.
type ResolverFunc func(ctx context.Context, u Unit) (Decision, error)

func (f ResolverFunc) Resolve(ctx context.Context, u Unit) (Decision, error) {
	return f(ctx, u)
}

// Always answers every conflict with d.
func Always(d Decision) ConflictResolver {
	return ResolverFunc(func(context.Context, Unit) (Decision, error) {
		return d, nil
	})
}
