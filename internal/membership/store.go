package membership

import "context"

// Store persists memberships. Upsert must be a single atomic
// create-or-update keyed by (programId, userId): concurrent joins by the
// same user must never produce two rows, and repeated resource-start
// signals must each increment, never reset, the counter.
type Store interface {
	Upsert(ctx context.Context, programID, userID string, update Update) (*Membership, error)
}
