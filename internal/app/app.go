package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"ytpl/internal/archive"
	"ytpl/internal/auth"
	"ytpl/internal/config"
	"ytpl/internal/download"
	"ytpl/internal/fetch"
	"ytpl/internal/model"
	"ytpl/internal/storage"
	"ytpl/internal/ytpl"
)

// App is the application layer between the CLI and the domain packages.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the log file lifecycle on Close.
type App struct {
	cfg        *config.Config
	store      ytpl.Store
	fetcher    ytpl.Fetcher
	downloader *download.Manager
	authStore  *auth.Store
	logger     ytpl.Logger
	logFile    *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Update", "Archive").
// The caller must call Close when done.
func New(cfg *config.Config, authDir string, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("operation", operation)}

	store, err := storage.New(cfg.Storage.Dir, ytpl.RealClock{}, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating playlist store: %w", err)
	}

	authStore, err := auth.NewStore(authDir)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating auth store: %w", err)
	}

	cookies := authStore.CookiesPath()
	fetcher := fetch.New(fetch.ExecRunner{Binary: cfg.Fetch.Binary}, cookies, ytpl.RealClock{}, ytpl.UUIDGenerator{}, logger)
	downloader := download.NewManager(download.ExecRunner{Binary: cfg.Fetch.Binary}, store, logger, cfg.Download.Dir, cfg.Download.Workers, cookies)

	return &App{
		cfg:        cfg,
		store:      store,
		fetcher:    fetcher,
		downloader: downloader,
		authStore:  authStore,
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// AuthStore exposes the credential store for the auth commands.
func (a *App) AuthStore() *auth.Store { return a.authStore }

// Update fetches fresh playlist metadata from the source, merges it against
// the stored state, and persists the result with a version snapshot.
// Returns the merged playlist.
func (a *App) Update(ctx context.Context, url string) (*model.Playlist, error) {
	fresh, err := a.fetcher.FetchPlaylist(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}

	existing, err := a.store.Load(fresh.PlaylistID)
	if err != nil {
		return nil, fmt.Errorf("loading stored playlist: %w", err)
	}

	merged := ytpl.Merge(fresh, existing, time.Now().UTC())
	if err := a.store.Save(merged, true); err != nil {
		return nil, fmt.Errorf("saving playlist: %w", err)
	}

	a.logger.Info("playlist updated", "playlist_id", merged.PlaylistID, "videos", merged.VideoCount)
	return merged, nil
}

// UpdateStored re-fetches a playlist that is already tracked, by its stored URL.
func (a *App) UpdateStored(ctx context.Context, playlistID string) (*model.Playlist, error) {
	existing, err := a.store.Load(playlistID)
	if err != nil {
		return nil, fmt.Errorf("loading stored playlist: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("playlist %s is not tracked: run 'ytpl fetch <url>' first", playlistID)
	}
	if existing.WebpageURL == "" {
		return nil, fmt.Errorf("playlist %s has no stored URL", playlistID)
	}
	return a.Update(ctx, existing.WebpageURL)
}

// List returns summaries for all tracked playlists.
func (a *App) List() ([]model.PlaylistSummary, error) {
	return a.store.ListAll()
}

// Playlist returns the full stored state of a playlist.
func (a *App) Playlist(playlistID string) (*model.Playlist, error) {
	p, err := a.store.Load(playlistID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("playlist %s is not tracked", playlistID)
	}
	return p, nil
}

// History returns all version snapshots for a playlist, oldest first.
func (a *App) History(playlistID string) ([]model.PlaylistVersion, error) {
	return a.store.History(playlistID)
}

// Export writes a playlist's full current state to a standalone JSON file.
func (a *App) Export(playlistID string, outPath string) error {
	return a.store.Export(playlistID, outPath)
}

// Delete removes a playlist's entire on-disk representation.
func (a *App) Delete(playlistID string) error {
	return a.store.Delete(playlistID)
}

// Download downloads all live, not-yet-downloaded videos in a playlist.
// Returns per-video success keyed by video ID.
func (a *App) Download(ctx context.Context, playlistID string, opts download.Options) (map[string]bool, error) {
	playlist, err := a.Playlist(playlistID)
	if err != nil {
		return nil, err
	}
	if opts.Quality == "" {
		opts.Quality = a.cfg.Download.Quality
	}
	return a.downloader.DownloadPlaylist(ctx, playlist, opts)
}

// DownloadVideos downloads specific videos from a playlist by ID.
func (a *App) DownloadVideos(ctx context.Context, playlistID string, videoIDs []string, opts download.Options) (map[string]bool, error) {
	playlist, err := a.Playlist(playlistID)
	if err != nil {
		return nil, err
	}
	if opts.Quality == "" {
		opts.Quality = a.cfg.Download.Quality
	}
	return a.downloader.DownloadVideos(ctx, playlist, videoIDs, opts)
}

// uploadOptions applies config fallbacks to upload options. A zero Retries
// means the caller did not choose, so the configured value applies.
func (a *App) uploadOptions(opts ytpl.UploadOptions) ytpl.UploadOptions {
	if opts.Retries <= 0 {
		opts.Retries = a.cfg.Archive.Retries
	}
	return opts
}

// Archive uploads downloaded videos from a playlist to the archive backend.
// creds is the decrypted key pair from the auth store. stop is polled between
// videos so an interrupt finishes the in-flight upload cleanly. onItem, if
// non-nil, is called after each video completes.
func (a *App) Archive(ctx context.Context, playlistID string, creds archive.Credentials, opts ytpl.UploadOptions, stop *atomic.Bool, onItem func(videoID string, result ytpl.UploadResult)) (map[string]ytpl.UploadResult, error) {
	playlist, err := a.Playlist(playlistID)
	if err != nil {
		return nil, err
	}
	opts = a.uploadOptions(opts)

	client, err := archive.NewClientFromConfig(ctx, a.cfg.Archive, creds, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating archive client: %w", err)
	}

	uploader := ytpl.NewUploader(client, a.store, a.logger, ytpl.RealClock{}, ytpl.RealSleeper{}, a.cfg.Archive.IdentifierPrefix)

	videos := make([]*model.Video, 0, len(playlist.Videos))
	for _, v := range playlist.Videos {
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].PlaylistIndex != videos[j].PlaylistIndex {
			return videos[i].PlaylistIndex < videos[j].PlaylistIndex
		}
		return videos[i].VideoID < videos[j].VideoID
	})

	return uploader.UploadBatch(ctx, videos, playlist, opts, stop, onItem), nil
}

// ArchiveVideo uploads a single video from a playlist to the archive backend.
func (a *App) ArchiveVideo(ctx context.Context, playlistID, videoID string, creds archive.Credentials, opts ytpl.UploadOptions) (ytpl.UploadResult, error) {
	playlist, err := a.Playlist(playlistID)
	if err != nil {
		return ytpl.UploadResult{}, err
	}

	video, ok := playlist.Videos[videoID]
	if !ok {
		return ytpl.UploadResult{}, fmt.Errorf("video %s is not in playlist %s", videoID, playlistID)
	}
	opts = a.uploadOptions(opts)

	client, err := archive.NewClientFromConfig(ctx, a.cfg.Archive, creds, a.logger)
	if err != nil {
		return ytpl.UploadResult{}, fmt.Errorf("creating archive client: %w", err)
	}

	uploader := ytpl.NewUploader(client, a.store, a.logger, ytpl.RealClock{}, ytpl.RealSleeper{}, a.cfg.Archive.IdentifierPrefix)
	ok, msg := uploader.UploadVideo(ctx, video, playlist, opts)
	if err := a.store.Save(playlist, true); err != nil {
		return ytpl.UploadResult{}, fmt.Errorf("saving playlist: %w", err)
	}
	return ytpl.UploadResult{Success: ok, Message: msg}, nil
}

// Close closes the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
