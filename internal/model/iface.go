package model

// SnapshotReader provides read-only access to the latest published totals.
type SnapshotReader interface {
	Snapshot() Snapshot
}
