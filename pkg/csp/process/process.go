// Package process runs CSP processes as members of a Network.
//
// Each started process gets its own worker goroutine and stays a member until
// its Run returns, fails, or panics, at which point it is removed. WaitForAll
// blocks until the membership drains.
package process

import "context"

// Process is one sequential unit of work. RemoveProcess finds only comparable
// implementations (pointer receivers are the usual choice).
type Process interface {
	Name() string
	Run(ctx context.Context) error
}

// Func adapts a function to Process.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Run(ctx context.Context) error {
	return f.fn(ctx)
}
