package remote

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ProfileStore keeps connection profiles. Persistence and credential storage are up
// to the implementation.
type ProfileStore interface {
	Get(id string) (*Profile, bool)
	List() []*Profile
	Put(profile *Profile) error
	MarkUsed(id string, at time.Time) error
}

// MemoryStore is an in-process ProfileStore, valid for the lifetime of a session.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

var _ ProfileStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
	}
}

// Get returns a copy of the profile with the specified id.
func (store *MemoryStore) Get(id string) (*Profile, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	profile, ok := store.profiles[id]
	if !ok {
		return nil, false
	}

	copied := *profile
	return &copied, true
}

// List returns copies of all profiles ordered by id.
func (store *MemoryStore) List() []*Profile {
	store.mu.RLock()
	defer store.mu.RUnlock()

	profiles := make([]*Profile, 0, len(store.profiles))
	for _, profile := range store.profiles {
		copied := *profile
		profiles = append(profiles, &copied)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ID < profiles[j].ID
	})

	return profiles
}

// Put normalizes, validates and stores a copy of the profile.
func (store *MemoryStore) Put(profile *Profile) error {
	copied := *profile
	copied.Normalize()

	if err := copied.Validate(); err != nil {
		return err
	}

	store.mu.Lock()
	store.profiles[copied.ID] = &copied
	store.mu.Unlock()

	return nil
}

// MarkUsed updates the last used time of a profile.
func (store *MemoryStore) MarkUsed(id string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	profile, ok := store.profiles[id]
	if !ok {
		return errors.WithMessagef(ErrProfileNotFound, "id = %v", id)
	}

	profile.LastUsed = &at

	return nil
}
