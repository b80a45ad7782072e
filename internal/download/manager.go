// Package download runs per-video downloads through yt-dlp with a bounded
// worker pool. Downloads are bandwidth-bound and safely parallel, unlike
// uploads, which the pipeline keeps sequential.
package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ytpl/internal/fileutil"
	"ytpl/internal/model"
	"ytpl/internal/ytpl"
)

// Runner executes the download binary for a single video.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// ExecRunner runs the configured binary as a subprocess, streaming its
// output to the terminal.
type ExecRunner struct {
	Binary string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Options controls a playlist download run.
type Options struct {
	Quality   string // "1080p", "720p", or "best"
	AudioOnly bool
	Workers   int // overrides the manager default when positive
}

// Manager downloads playlist videos in parallel and writes download status
// back into the video records.
type Manager struct {
	runner      Runner
	store       ytpl.Store
	logger      ytpl.Logger
	downloadDir string
	workers     int
	cookiesPath string

	// stateMu guards the playlist's video records. Workers record their
	// outcomes under it, and saves hold it so serialization never observes
	// a half-written record from a sibling worker.
	stateMu sync.Mutex
}

// NewManager creates a download manager rooted at downloadDir.
func NewManager(runner Runner, store ytpl.Store, logger ytpl.Logger, downloadDir string, workers int, cookiesPath string) *Manager {
	if workers < 1 {
		workers = 5
	}
	return &Manager{
		runner:      runner,
		store:       store,
		logger:      logger,
		downloadDir: downloadDir,
		workers:     workers,
		cookiesPath: cookiesPath,
	}
}

// DownloadPlaylist downloads every live, not-yet-completed video in the
// playlist. The playlist is persisted after each video (without a version
// snapshot) so partial progress survives a crash, and once more with a
// version snapshot at the end. Returns per-video success.
func (m *Manager) DownloadPlaylist(ctx context.Context, playlist *model.Playlist, opts Options) (map[string]bool, error) {
	outDir := filepath.Join(m.downloadDir, fileutil.SanitizeName(playlist.Title))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	candidates := downloadCandidates(playlist)
	if len(candidates) == 0 {
		m.logger.Info("no videos to download", "playlist_id", playlist.PlaylistID)
		return map[string]bool{}, nil
	}

	workers := m.workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	m.logger.Info("downloading playlist",
		"playlist_id", playlist.PlaylistID, "videos", len(candidates), "workers", workers)

	jobs := make(chan *model.Video)
	results := make(map[string]bool, len(candidates))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for video := range jobs {
				success := m.downloadVideo(ctx, video, outDir, opts)

				resultsMu.Lock()
				results[video.VideoID] = success
				resultsMu.Unlock()

				m.stateMu.Lock()
				if err := m.store.Save(playlist, false); err != nil {
					m.logger.Error("persisting playlist after download",
						"playlist_id", playlist.PlaylistID, "error", err)
				}
				m.stateMu.Unlock()
			}
		}()
	}

	for _, video := range candidates {
		jobs <- video
	}
	close(jobs)
	wg.Wait()

	if err := m.store.Save(playlist, true); err != nil {
		return results, fmt.Errorf("saving playlist: %w", err)
	}

	successful := 0
	for _, ok := range results {
		if ok {
			successful++
		}
	}
	m.logger.Info("download complete",
		"playlist_id", playlist.PlaylistID, "successful", successful, "total", len(results))
	return results, nil
}

// DownloadVideos downloads only the requested video ids sequentially.
func (m *Manager) DownloadVideos(ctx context.Context, playlist *model.Playlist, videoIDs []string, opts Options) (map[string]bool, error) {
	outDir := filepath.Join(m.downloadDir, fileutil.SanitizeName(playlist.Title))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	results := make(map[string]bool)
	for _, id := range videoIDs {
		video, ok := playlist.Videos[id]
		if !ok {
			continue
		}
		results[id] = m.downloadVideo(ctx, video, outDir, opts)
	}

	if err := m.store.Save(playlist, true); err != nil {
		return results, fmt.Errorf("saving playlist: %w", err)
	}
	return results, nil
}

// downloadVideo runs one download and records the outcome on the video.
// All writes to the video record go through stateMu: sibling workers may
// be marshaling the whole playlist for a save at any moment.
func (m *Manager) downloadVideo(ctx context.Context, video *model.Video, outDir string, opts Options) bool {
	if video.Status != model.StatusLive {
		m.logger.Debug("skipping non-live video",
			"video_id", video.VideoID, "status", video.Status)
		return false
	}

	base := fmt.Sprintf("%03d - %s", video.PlaylistIndex, fileutil.SanitizeName(video.Title))
	args := buildArgs(video, outDir, base, opts, m.cookiesPath)

	m.stateMu.Lock()
	video.DownloadStatus = model.DownloadDownloading
	m.stateMu.Unlock()

	if err := m.runner.Run(ctx, args...); err != nil {
		m.logger.Warn("download failed", "video_id", video.VideoID, "error", err)
		m.stateMu.Lock()
		video.DownloadStatus = model.DownloadFailed
		m.stateMu.Unlock()
		return false
	}

	m.stateMu.Lock()
	if opts.AudioOnly {
		video.AudioPath = filepath.Join(outDir, base+".mp3")
	} else {
		video.VideoPath = filepath.Join(outDir, base+".mp4")
	}
	video.DownloadStatus = model.DownloadCompleted
	m.stateMu.Unlock()

	m.logger.Info("video downloaded", "video_id", video.VideoID)
	return true
}

// downloadCandidates returns live videos not yet completed, in playlist
// order.
func downloadCandidates(playlist *model.Playlist) []*model.Video {
	var candidates []*model.Video
	for _, video := range playlist.Videos {
		if video.Status == model.StatusLive && video.DownloadStatus != model.DownloadCompleted {
			candidates = append(candidates, video)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PlaylistIndex < candidates[j].PlaylistIndex
	})
	return candidates
}

// buildArgs assembles the yt-dlp invocation for one video. Resume and
// no-overwrite flags make re-runs cheap.
func buildArgs(video *model.Video, outDir, base string, opts Options, cookiesPath string) []string {
	args := []string{
		"--output", filepath.Join(outDir, base+".%(ext)s"),
		"--continue",
		"--no-overwrites",
	}

	if opts.AudioOnly {
		args = append(args,
			"--format", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", "192",
		)
	} else {
		args = append(args,
			"--format", formatSelector(opts.Quality),
			"--merge-output-format", "mp4",
		)
	}

	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}

	url := video.WebpageURL
	if url == "" {
		url = "https://www.youtube.com/watch?v=" + video.VideoID
	}
	return append(args, url)
}

func formatSelector(quality string) string {
	switch quality {
	case "", "1080p":
		return "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best"
	case "720p":
		return "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best"
	case "best":
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	default:
		return fmt.Sprintf("bestvideo[height<=%s][ext=mp4]+bestaudio[ext=m4a]/best",
			strings.TrimSuffix(quality, "p"))
	}
}
