// Package kit holds the small transport-agnostic plumbing shared by the
// memescope surfaces: the Endpoint shape and the MCP tool adapter.
package kit

import "context"

// Endpoint is one business operation: typed request in, typed response out.
// Both HTTP handlers and MCP tools decode into an Endpoint call.
type Endpoint func(ctx context.Context, req any) (any, error)
