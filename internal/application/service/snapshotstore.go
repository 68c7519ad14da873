package service

import (
	"sync"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

var _ output.SnapshotSource = (*SnapshotStore)(nil)

// SnapshotStore is the in-memory last-write-wins snapshot bridge. It is
// injected wherever a SnapshotSource is needed; nothing assumes a
// process-wide singleton.
type SnapshotStore struct {
	mu     sync.RWMutex
	latest entity.Snapshot
	set    bool
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Publish(snap entity.Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.set = true
	s.mu.Unlock()
}

func (s *SnapshotStore) Latest() (entity.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.set
}
