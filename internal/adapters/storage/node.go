package storage

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the storage opener Graft node.
const NodeID graft.ID = "adapter.storage"

func init() {
	graft.Register(graft.Node[*Opener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Opener, error) {
			return NewOpener(), nil
		},
	})
}
