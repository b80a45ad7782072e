package ytpl

import "ytpl/internal/model"

// Store persists playlist state and append-only version history.
// It exclusively owns the on-disk representation of playlists. Implementations
// assume single-writer-at-a-time access per playlist; concurrent saves of the
// same playlist must be serialized by the caller or by the implementation.
type Store interface {
	// Load returns the current state of a playlist, or (nil, nil) if the
	// playlist has never been saved. A corrupt state file is an error.
	Load(playlistID string) (*model.Playlist, error)

	// Save writes the playlist's current state. When createVersion is true
	// and the save changed the added/removed/status-changed sets relative
	// to the previously stored state, a version snapshot is appended to
	// history. No-op saves never grow history.
	Save(playlist *model.Playlist, createVersion bool) error

	// History returns all version snapshots for a playlist, oldest first.
	History(playlistID string) ([]model.PlaylistVersion, error)

	// ListAll returns summaries for every stored playlist. A corrupt state
	// file skips that one playlist; listing continues for the rest.
	ListAll() ([]model.PlaylistSummary, error)

	// Delete removes a playlist's entire on-disk representation.
	Delete(playlistID string) error

	// Export writes the playlist's full current state to a standalone file.
	Export(playlistID string, outPath string) error
}
