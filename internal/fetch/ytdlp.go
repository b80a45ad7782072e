// Package fetch retrieves playlist metadata from the source platform by
// driving the yt-dlp binary and converting its JSON dump into the internal
// model.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"ytpl/internal/model"
	"ytpl/internal/ytpl"
)

// Runner executes the metadata extraction binary. It abstracts the
// subprocess so conversion logic is testable without yt-dlp installed.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the configured binary as a subprocess.
type ExecRunner struct {
	Binary string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", r.Binary, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", r.Binary, err)
	}
	return stdout.Bytes(), nil
}

// Fetcher implements ytpl.Fetcher with yt-dlp.
type Fetcher struct {
	runner      Runner
	cookiesPath string
	clock       ytpl.Clock
	idgen       ytpl.IDGenerator
	logger      ytpl.Logger
}

var _ ytpl.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher. cookiesPath may be empty when the source needs no
// authentication.
func New(runner Runner, cookiesPath string, clock ytpl.Clock, idgen ytpl.IDGenerator, logger ytpl.Logger) *Fetcher {
	return &Fetcher{
		runner:      runner,
		cookiesPath: cookiesPath,
		clock:       clock,
		idgen:       idgen,
		logger:      logger,
	}
}

// FetchPlaylist extracts full metadata for every entry in the playlist.
// Unresolvable entries still appear in the result with status
// "unavailable" and a synthesized placeholder id.
func (f *Fetcher) FetchPlaylist(ctx context.Context, url string) (*model.Playlist, error) {
	args := []string{
		"--dump-single-json",
		"--no-warnings",
		"--ignore-errors",
		"--skip-download",
	}
	if f.cookiesPath != "" {
		args = append(args, "--cookies", f.cookiesPath)
	}
	args = append(args, url)

	f.logger.Debug("fetching playlist", "url", url)
	out, err := f.runner.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist %s: %w", url, err)
	}

	var raw rawPlaylist
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decoding playlist dump: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("playlist dump carries no id for %s", url)
	}

	playlist := convertPlaylist(&raw, f.clock.Now(), f.idgen)
	f.logger.Info("playlist fetched",
		"playlist_id", playlist.PlaylistID, "title", playlist.Title, "videos", len(playlist.Videos))
	return playlist, nil
}
