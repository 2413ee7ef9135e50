package csp

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a process terminated.
type Outcome int

const (
	// Terminated is a normal return from Run.
	Terminated Outcome = iota
	// Failed means Run returned a non-cancellation error.
	Failed
	// Canceled means Run returned because its context was canceled.
	Canceled
	// Panicked means Run panicked and the worker recovered it.
	Panicked
)

func (o Outcome) String() string {
	switch o {
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	case Panicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Exit records the termination of one process run.
type Exit struct {
	id         uuid.UUID
	name       string
	thread     string
	startedAt  time.Time
	finishedAt time.Time
	err        error
	outcome    Outcome
}

// NewExit classifies err and stamps the finish time (UTC).
func NewExit(id uuid.UUID, name, thread string, startedAt time.Time, err error) Exit {
	outcome := Terminated
	switch {
	case err == nil:
	case IsPanic(err):
		outcome = Panicked
	case IsCancellationError(err):
		outcome = Canceled
	default:
		outcome = Failed
	}

	return Exit{
		id:         id,
		name:       name,
		thread:     thread,
		startedAt:  startedAt,
		finishedAt: time.Now().UTC(),
		err:        err,
		outcome:    outcome,
	}
}

func (e Exit) Id() uuid.UUID {
	return e.id
}

func (e Exit) Name() string {
	return e.name
}

// Thread is the worker name the process ran on, e.g. "net-thread-3".
func (e Exit) Thread() string {
	return e.thread
}

func (e Exit) Err() error {
	return e.err
}

func (e Exit) Outcome() Outcome {
	return e.outcome
}

func (e Exit) IsSuccess() bool {
	return e.outcome == Terminated
}

func (e Exit) IsCancel() bool {
	return e.outcome == Canceled
}

func (e Exit) IsPanic() bool {
	return e.outcome == Panicked
}

func (e Exit) StartedAt() time.Time {
	return e.startedAt
}

func (e Exit) FinishedAt() time.Time {
	return e.finishedAt
}

func (e Exit) Duration() time.Duration {
	return e.finishedAt.Sub(e.startedAt)
}
