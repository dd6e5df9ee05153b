// Package adapter provides concrete DataAdapter backends for
// github.com/rulepilot/flagcore. Each implementation satisfies the
// root package's DataAdapter interface structurally, without
// importing it, to keep this package free of a dependency edge back
// to the evaluation core.
package adapter

import "context"

// DataAdapter mirrors flagcore.DataAdapter. Kept as a local type so
// this package has no import of the root module; any value here
// already satisfies flagcore.DataAdapter by structural typing.
type DataAdapter interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	SupportsPollingUpdatesFor(key string) bool
}
