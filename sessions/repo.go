package sessions

import "context"

// Repo stores sessions by ID. Get returns errors.ErrSessionNotFound for unknown or expired IDs.
type Repo interface {
	Upsert(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
