// Package csp holds the pieces shared by every part of the substrate: the
// sentinel errors returned by channels, selectors and networks, and the Exit
// record describing how a supervised process terminated.
//
// The substrate itself lives in the subpackages:
// - store: capacity strategies behind a channel (rendezvous, bounded, unbounded)
// - channel: blocking typed channels with close-to-cancel semantics
// - alt: selectable inputs, deadline timers and the multi-input selector
// - worker: named worker factory used to run processes
// - process: processes and the network that supervises them
// - inout: the read-transform-write skeleton for pipeline stages
// - stages: ready-made hooks for inout (Map, Try, Validate, Tee, Reduce, Sink)
package csp
