// Package registry talks to the host desktop-entry daemon. Entries and icon
// bytes are pushed under an ownership key (the container name) and can be
// retracted as a unit, which is what makes re-synchronization idempotent.
package registry

import "context"

// Client is the capability exposed by the desktop-entry daemon.
type Client interface {
	// Register publishes one application entry under owner.
	Register(ctx context.Context, appID, entryText, owner string) error
	// RegisterIcon publishes icon bytes under owner.
	RegisterIcon(ctx context.Context, iconName string, data []byte, owner string) error
	// RetractOwner removes every entry and icon attributed to owner.
	// Retracting an owner with no published state is a no-op.
	RetractOwner(ctx context.Context, owner string) error
}
