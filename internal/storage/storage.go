// Package storage is the filesystem implementation of the versioned
// playlist store. Each playlist lives in its own directory under the
// storage root, holding a current-state file and an append-only version
// history file. The directory name is a human-readable label derived from
// "<channel> - <title>"; identity is always the playlist id embedded in
// the state file, never the directory name.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ytpl/internal/fileutil"
	"ytpl/internal/model"
	"ytpl/internal/ytpl"
)

const (
	stateFileName   = "current_state.json"
	historyFileName = "version_history.json"
	lockFileName    = ".lock"
)

// Store implements ytpl.Store on a directory tree of JSON files.
// An in-memory id-to-directory index avoids rescanning the root on every
// lookup; entries are validated before use and rebuilt on miss, so the
// index stays consistent with on-disk renames.
type Store struct {
	root   string
	clock  ytpl.Clock
	logger ytpl.Logger

	mu    sync.Mutex
	index map[string]string // playlist id -> directory path
}

var _ ytpl.Store = (*Store)(nil)

// New creates a Store rooted at the given directory, creating it if
// needed.
func New(root string, clock ytpl.Clock, logger ytpl.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &Store{
		root:   root,
		clock:  clock,
		logger: logger,
		index:  make(map[string]string),
	}, nil
}

// Load returns the current state of a playlist, or (nil, nil) if it has
// never been saved.
func (s *Store) Load(playlistID string) (*model.Playlist, error) {
	dir, err := s.dirFor(playlistID)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}
	return loadState(filepath.Join(dir, stateFileName))
}

// Save writes the playlist's current state atomically, appends a version
// snapshot when createVersion is true and the diff against the previous
// state is non-empty, and finally reconciles the directory label.
func (s *Store) Save(playlist *model.Playlist, createVersion bool) error {
	dir, err := s.dirFor(playlist.PlaylistID)
	if err != nil {
		return err
	}
	if dir == "" {
		// First save: the id stands in as the directory name until the
		// label rename below.
		dir = filepath.Join(s.root, playlist.PlaylistID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating playlist directory: %w", err)
		}
		s.setIndex(playlist.PlaylistID, dir)
	}

	// Advisory lock so a second process saving the same playlist blocks
	// rather than interleaving partial writes.
	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking playlist directory: %w", err)
	}
	defer lock.Unlock()

	previous, err := loadState(filepath.Join(dir, stateFileName))
	if err != nil {
		// Never overwrite state we cannot read back.
		return fmt.Errorf("reading previous state: %w", err)
	}

	playlist.LastUpdated = s.clock.Now()
	playlist.VideoCount = len(playlist.Videos)

	if err := writeJSONAtomic(filepath.Join(dir, stateFileName), playlist); err != nil {
		return fmt.Errorf("writing playlist state: %w", err)
	}

	if createVersion {
		if err := s.appendVersion(dir, playlist, previous); err != nil {
			return fmt.Errorf("appending version snapshot: %w", err)
		}
	}

	s.reconcileLabel(dir, playlist)
	return nil
}

// History returns the playlist's version snapshots, oldest first. An
// unknown playlist has empty history.
func (s *Store) History(playlistID string) ([]model.PlaylistVersion, error) {
	dir, err := s.dirFor(playlistID)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}
	return loadHistory(filepath.Join(dir, historyFileName))
}

// ListAll scans the storage root and returns a summary per playlist,
// sorted by title. A corrupt state file skips that one playlist; listing
// continues for the rest.
func (s *Store) ListAll() ([]model.PlaylistSummary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading storage root: %w", err)
	}

	var summaries []model.PlaylistSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, err := readSummary(filepath.Join(s.root, entry.Name(), stateFileName))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("skipping unreadable playlist state",
					"dir", entry.Name(), "error", err)
			}
			continue
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Title < summaries[j].Title
	})
	return summaries, nil
}

// Delete removes the playlist's entire on-disk representation.
func (s *Store) Delete(playlistID string) error {
	dir, err := s.dirFor(playlistID)
	if err != nil {
		return err
	}
	if dir == "" {
		return fmt.Errorf("playlist %s not found", playlistID)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting playlist directory: %w", err)
	}
	s.mu.Lock()
	delete(s.index, playlistID)
	s.mu.Unlock()
	s.logger.Info("playlist deleted", "playlist_id", playlistID)
	return nil
}

// Export writes the playlist's full current state to a standalone file.
func (s *Store) Export(playlistID string, outPath string) error {
	playlist, err := s.Load(playlistID)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("playlist %s not found", playlistID)
	}
	if err := writeJSONAtomic(outPath, playlist); err != nil {
		return fmt.Errorf("exporting playlist: %w", err)
	}
	return nil
}

// dirFor resolves a playlist id to its directory, or "" if the playlist
// has never been saved. The cached index entry is validated against the
// on-disk state before being trusted; on miss the root is rescanned.
func (s *Store) dirFor(playlistID string) (string, error) {
	s.mu.Lock()
	cached, ok := s.index[playlistID]
	s.mu.Unlock()

	if ok {
		if id, err := readStateID(filepath.Join(cached, stateFileName)); err == nil && id == playlistID {
			return cached, nil
		}
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("reading storage root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		id, err := readStateID(filepath.Join(dir, stateFileName))
		if err != nil {
			continue
		}
		if id == playlistID {
			s.setIndex(playlistID, dir)
			return dir, nil
		}
	}

	s.mu.Lock()
	delete(s.index, playlistID)
	s.mu.Unlock()
	return "", nil
}

func (s *Store) setIndex(playlistID, dir string) {
	s.mu.Lock()
	s.index[playlistID] = dir
	s.mu.Unlock()
}

// appendVersion diffs the new state against the previous one and appends a
// snapshot when anything actually changed. With no previous state every
// video counts as added.
func (s *Store) appendVersion(dir string, current, previous *model.Playlist) error {
	historyPath := filepath.Join(dir, historyFileName)
	history, err := loadHistory(historyPath)
	if err != nil {
		return err
	}

	version := diffPlaylists(current, previous)
	if version.Empty() {
		return nil
	}

	version.Version = len(history) + 1
	version.Timestamp = s.clock.Now()
	version.Note = fmt.Sprintf("Playlist update: %d added, %d status changed",
		len(version.Added), len(version.StatusChanges))

	history = append(history, version)
	if err := writeJSONAtomic(historyPath, history); err != nil {
		return err
	}

	s.logger.Info("version created",
		"playlist_id", current.PlaylistID,
		"version", version.Version,
		"added", len(version.Added),
		"removed", len(version.Removed),
		"status_changed", len(version.StatusChanges))
	return nil
}

// diffPlaylists computes added/removed/status-changed sets in a
// deterministic (sorted) order.
func diffPlaylists(current, previous *model.Playlist) model.PlaylistVersion {
	var version model.PlaylistVersion

	if previous == nil {
		for id := range current.Videos {
			version.Added = append(version.Added, id)
		}
		sort.Strings(version.Added)
		return version
	}

	for id := range current.Videos {
		if _, ok := previous.Videos[id]; !ok {
			version.Added = append(version.Added, id)
		}
	}
	for id := range previous.Videos {
		if _, ok := current.Videos[id]; !ok {
			version.Removed = append(version.Removed, id)
		}
	}
	for id, curr := range current.Videos {
		prev, ok := previous.Videos[id]
		if !ok || curr.Status == prev.Status {
			continue
		}
		version.StatusChanges = append(version.StatusChanges, model.StatusChangeRecord{
			VideoID:   id,
			Title:     curr.Title,
			OldStatus: prev.Status,
			NewStatus: curr.Status,
		})
	}

	sort.Strings(version.Added)
	sort.Strings(version.Removed)
	sort.Slice(version.StatusChanges, func(i, j int) bool {
		return version.StatusChanges[i].VideoID < version.StatusChanges[j].VideoID
	})
	return version
}

// reconcileLabel renames the playlist directory to its human-readable
// label. Collisions are resolved deterministically and never lose data:
// a target holding the same playlist id is a stale duplicate and is
// replaced by the freshly saved directory; a target holding a different id
// keeps its data and the rename is skipped.
//
// Note the direction of the same-id resolution: the just-saved source
// directory is authoritative and the stale target is discarded, so the
// state and version history written by this save always survive. Removing
// the source instead would silently drop the save that triggered the
// rename. See DESIGN.md, "Label collision".
func (s *Store) reconcileLabel(dir string, playlist *model.Playlist) {
	label := playlistLabel(playlist)
	if label == "" || filepath.Base(dir) == label {
		return
	}
	target := filepath.Join(s.root, label)

	if _, err := os.Stat(target); err == nil {
		targetID, err := readStateID(filepath.Join(target, stateFileName))
		if err != nil {
			s.logger.Warn("label target unreadable, keeping directory name",
				"playlist_id", playlist.PlaylistID, "target", label, "error", err)
			return
		}
		if targetID != playlist.PlaylistID {
			// Genuine collision with an unrelated playlist: never
			// overwrite another playlist's data.
			s.logger.Info("label collision prevented",
				"playlist_id", playlist.PlaylistID, "label", label)
			return
		}
		// Stale duplicate of this same playlist. The directory we just
		// saved into holds the fresh state and history; the target is
		// replaced by it.
		if err := os.RemoveAll(target); err != nil {
			s.logger.Warn("removing stale duplicate failed",
				"playlist_id", playlist.PlaylistID, "target", label, "error", err)
			return
		}
	}

	if err := os.Rename(dir, target); err != nil {
		s.logger.Warn("could not rename playlist directory",
			"playlist_id", playlist.PlaylistID, "label", label, "error", err)
		return
	}
	s.setIndex(playlist.PlaylistID, target)
	s.logger.Info("playlist directory renamed",
		"playlist_id", playlist.PlaylistID, "label", label)
}

// playlistLabel derives the human-readable directory label
// "<channel> - <title>", sanitized and length-capped.
func playlistLabel(playlist *model.Playlist) string {
	channel := playlist.Channel
	if channel == "" {
		channel = playlist.Uploader
	}
	if channel == "" {
		channel = "Unknown Channel"
	}
	return fileutil.SanitizeName(fileutil.SanitizeName(channel) + " - " + fileutil.SanitizeName(playlist.Title))
}

func loadState(path string) (*model.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var playlist model.Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	return &playlist, nil
}

func loadHistory(path string) ([]model.PlaylistVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	var history []model.PlaylistVersion
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decoding history file %s: %w", path, err)
	}
	return history, nil
}

// readStateID extracts only the embedded playlist id from a state file.
func readStateID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var header struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return "", fmt.Errorf("decoding state file %s: %w", path, err)
	}
	return header.PlaylistID, nil
}

// readSummary extracts the listing fields from a state file without
// materializing every video record.
func readSummary(path string) (model.PlaylistSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PlaylistSummary{}, err
	}
	var raw struct {
		PlaylistID  string                     `json:"playlist_id"`
		Title       string                     `json:"title"`
		Channel     string                     `json:"channel"`
		Uploader    string                     `json:"uploader"`
		LastUpdated time.Time                  `json:"last_updated"`
		Videos      map[string]json.RawMessage `json:"videos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.PlaylistSummary{}, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	channel := raw.Channel
	if channel == "" {
		channel = raw.Uploader
	}
	return model.PlaylistSummary{
		PlaylistID:  raw.PlaylistID,
		Title:       raw.Title,
		Channel:     channel,
		VideoCount:  len(raw.Videos),
		LastUpdated: raw.LastUpdated,
	}, nil
}

// writeJSONAtomic marshals v and replaces path via a temp file and rename,
// so readers never observe a partial write.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	success = true
	return nil
}
