// Package kit holds small transport helpers shared by the module's service
// surfaces.
package kit

import "context"

// Endpoint is a transport-agnostic request handler: decoded request in,
// serializable response out.
type Endpoint func(ctx context.Context, req any) (any, error)
