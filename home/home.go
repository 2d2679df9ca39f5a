// Package home declares the two paths every front end must supply the core:
// the primary store and a scratch path for in-place maintenance rewrites.
// Discovery policy (environment variable names, fall-backs, an override
// variable) is a front-end concern and deliberately has no implementation
// here: just the interface, no concrete resolver.
package home

// Paths is what a front end resolves from its environment and hands to the
// core. PrimaryStore is the file every command but sort's temp target reads
// and writes; TempStore is a scratch path for a front end. The maintenance
// rewrites in this module do not read TempStore: they stage into their
// target path plus maintenance.TempSuffix.
type Paths struct {
	PrimaryStore string
	TempStore    string
}

// Resolver discovers Paths from whatever environment a front end runs in.
// The core never implements Resolver itself; callers that need the default
// CLI behavior (an OATS_HOME env var, a fall-back to a user config
// directory) supply their own.
type Resolver interface {
	Resolve() (Paths, error)
}
