// Package core contains pipeline plumbing utilities: helpers moving slices in
// and out of channels, and stage options carried on the context. It does not
// define stages itself; packages like inout and stages build on it.
package core
