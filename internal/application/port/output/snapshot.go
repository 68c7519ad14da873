package output

import "portal-agent/internal/domain/entity"

// SnapshotSource bridges an external page observer into the tool layer.
// Last writer wins; Latest never blocks and callers must tolerate a
// stale or absent snapshot.
type SnapshotSource interface {
	Publish(snap entity.Snapshot)
	Latest() (entity.Snapshot, bool)
}
