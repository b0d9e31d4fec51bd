package interfaces

import "context"

// Judge is the opaque text-completion collaborator behind every agent
// stage. Callers own timeouts and retries; implementations surface
// failures as types.ErrProvider.
type Judge interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
