package membership

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is the in-memory membership store for tests and local
// development. One mutex guards the whole upsert so the at-most-one-row
// invariant holds under concurrent joins, same as the unique index does for
// the document store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[memberKey]*Membership
}

type memberKey struct {
	programID string
	userID    string
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[memberKey]*Membership)}
}

func (s *MemoryStore) Upsert(_ context.Context, programID, userID string, update Update) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{programID: programID, userID: userID}
	record, ok := s.records[key]
	if !ok {
		record = &Membership{
			ID:        bson.NewObjectID(),
			ProgramID: programID,
			UserID:    userID,
			CreatedAt: update.Now,
		}
		s.records[key] = record
	}

	record.UpdatedAt = update.Now
	if update.UserRoleInformation != nil {
		record.UserRoleInformation = update.UserRoleInformation
	}
	if update.UserProfile != nil {
		record.UserProfile = update.UserProfile
	}
	if update.AppName != "" {
		record.AppInformation.AppName = update.AppName
	}
	if update.AppVersion != "" {
		record.AppInformation.AppVersion = update.AppVersion
	}
	if update.IncResourcesStarted {
		record.NoOfResourcesStarted++
	}

	copied := *record
	return &copied, nil
}

// Count reports the number of rows, letting tests assert the upsert key's
// uniqueness invariant.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
