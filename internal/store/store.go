// Package store keeps the serialized project collection in a single
// string slot. Backends never fail on read: a missing or unreadable slot is
// reported as absent and the reason is logged.
package store

import "context"

// DefaultKey is the slot holding the JSON array of projects.
const DefaultKey = "ia_soumission_projects"

// Store is durable storage of one serialized collection under one key.
type Store interface {
	// Read returns the raw slot content and false when nothing is stored yet.
	Read(ctx context.Context) (string, bool)
	// Write replaces the whole slot.
	Write(ctx context.Context, raw string) error
}
