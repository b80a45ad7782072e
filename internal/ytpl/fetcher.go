package ytpl

import (
	"context"

	"ytpl/internal/model"
)

// Fetcher retrieves fresh playlist metadata from the external source.
// Entries whose data cannot be resolved still appear in the result with
// status "unavailable" and a synthesized placeholder id; they are never
// dropped.
type Fetcher interface {
	FetchPlaylist(ctx context.Context, url string) (*model.Playlist, error)
}
