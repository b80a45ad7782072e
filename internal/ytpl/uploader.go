package ytpl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	"ytpl/internal/model"
)

const (
	// DefaultIdentifierPrefix is prepended to video ids when deriving
	// remote item identifiers.
	DefaultIdentifierPrefix = "youtube-"

	detailsBaseURL = "https://archive.org/details/"
	backoffBase    = 30 * time.Second
)

var identifierChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// DeriveIdentifier computes the remote item identifier for a video id.
// It is pure and repeatable: retries and re-runs always target the same
// remote resource. Characters outside [A-Za-z0-9_-] are stripped.
func DeriveIdentifier(prefix, videoID string) string {
	return prefix + identifierChars.ReplaceAllString(videoID, "")
}

// UploadOptions controls a single video upload.
type UploadOptions struct {
	// Retries is the total number of upload attempts on failure.
	Retries int
	// SkipLive skips videos still live at the source. The default uploads
	// regardless of status.
	SkipLive bool
	// Progress receives streaming progress events, may be nil.
	Progress ProgressFunc
}

// UploadResult is the per-video outcome of a batch upload.
type UploadResult struct {
	Success bool
	Message string
}

// Uploader drives the per-video archival upload pipeline: eligibility
// check, duplicate detection, payload assembly, and upload with retry.
type Uploader struct {
	client ArchiveClient
	store  Store
	logger Logger
	clock  Clock
	sleep  Sleeper
	prefix string
}

// NewUploader creates an Uploader. An empty prefix selects
// DefaultIdentifierPrefix.
func NewUploader(client ArchiveClient, store Store, logger Logger, clock Clock, sleep Sleeper, prefix string) *Uploader {
	if prefix == "" {
		prefix = DefaultIdentifierPrefix
	}
	return &Uploader{
		client: client,
		store:  store,
		logger: logger,
		clock:  clock,
		sleep:  sleep,
		prefix: prefix,
	}
}

// UploadVideo uploads a single video's files to the remote archive.
// Status and archive fields are written back into the video record; the
// caller is responsible for persisting the playlist afterwards.
func (u *Uploader) UploadVideo(ctx context.Context, video *model.Video, playlist *model.Playlist, opts UploadOptions) (bool, string) {
	if ok, reason := u.shouldArchive(video, opts.SkipLive); !ok {
		return false, "Skipped: " + reason
	}

	identifier := DeriveIdentifier(u.prefix, video.VideoID)

	item, err := u.client.Exists(ctx, identifier)
	if err != nil {
		// Existence is advisory; if the check fails, proceed as if the
		// item is absent and let the upload surface any real conflict.
		u.logger.Warn("existence check failed", "identifier", identifier, "error", err)
		item = RemoteItem{}
	}

	if item.Exists {
		if item.ExternalID == video.VideoID {
			video.ArchiveStatus = model.ArchiveArchived
			video.ArchiveIdentifier = identifier
			video.ArchiveURL = item.URL
			video.ArchiveError = ""
			return false, "Already archived at " + item.URL
		}
		// Foreign collision: the identifier is owned by unrelated data.
		video.ArchiveStatus = model.ArchiveSkipped
		video.ArchiveIdentifier = identifier
		video.ArchiveURL = item.URL
		return false, "Already exists (by another user): " + item.URL
	}

	files, metadataPath, err := u.assemblePayload(video, identifier)
	if err != nil {
		return false, fmt.Sprintf("Preparing upload payload: %v", err)
	}
	defer os.Remove(metadataPath)

	itemMeta := BuildItemMetadata(video, playlist, u.clock.Now())

	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		video.ArchiveStatus = model.ArchiveUploading

		err := u.client.Upload(ctx, identifier, files, itemMeta, opts.Progress)
		if err == nil {
			url := detailsBaseURL + identifier
			video.ArchiveStatus = model.ArchiveArchived
			video.ArchiveIdentifier = identifier
			video.ArchiveURL = url
			video.ArchiveDate = u.clock.Now().Format(time.RFC3339)
			video.ArchiveError = ""
			u.logger.Info("video archived", "video_id", video.VideoID, "identifier", identifier)
			return true, "Archived successfully: " + url
		}

		lastErr = err
		u.logger.Warn("upload attempt failed",
			"video_id", video.VideoID, "attempt", attempt+1, "error", err)

		if attempt < retries-1 {
			u.sleep.Sleep(backoffBase << attempt)
		}
	}

	video.ArchiveStatus = model.ArchiveFailed
	video.ArchiveError = lastErr.Error()
	return false, fmt.Sprintf("Upload failed after %d attempts: %v", retries, lastErr)
}

// UploadBatch uploads the given videos sequentially, persisting the
// playlist after each video so partial batch progress survives a crash.
// The stop flag is checked between videos only, never mid-upload. One
// video's failure never aborts its siblings; every processed video gets an
// entry in the returned map. onItem, if non-nil, is invoked after each
// video completes.
func (u *Uploader) UploadBatch(ctx context.Context, videos []*model.Video, playlist *model.Playlist, opts UploadOptions, stop *atomic.Bool, onItem func(videoID string, result UploadResult)) map[string]UploadResult {
	results := make(map[string]UploadResult, len(videos))

	for _, video := range videos {
		if stop != nil && stop.Load() {
			u.logger.Info("batch upload stopped", "completed", len(results))
			break
		}

		success, message := u.UploadVideo(ctx, video, playlist, opts)
		res := UploadResult{Success: success, Message: message}
		results[video.VideoID] = res

		if err := u.store.Save(playlist, true); err != nil {
			u.logger.Error("persisting playlist after upload",
				"playlist_id", playlist.PlaylistID, "error", err)
		}

		if onItem != nil {
			onItem(video.VideoID, res)
		}
	}

	return results
}

// shouldArchive performs the eligibility check: already-archived videos
// and videos with no local files fail fast; live videos are skipped only
// when the policy flag asks for it.
func (u *Uploader) shouldArchive(video *model.Video, skipLive bool) (bool, string) {
	if video.ArchiveStatus == model.ArchiveArchived {
		return false, "already archived"
	}

	if len(candidateFiles(video)) == 0 {
		return false, "no files to archive"
	}

	if skipLive && video.Status == model.StatusLive {
		return false, "video still available at source (skipping by policy)"
	}

	return true, ""
}

// assemblePayload gathers the video's local files plus a generated
// metadata sidecar holding the full serialized video record. It returns
// the upload file map and the temp metadata path the caller must remove.
func (u *Uploader) assemblePayload(video *model.Video, identifier string) (map[string]string, string, error) {
	files := candidateFiles(video)

	record, err := json.MarshalIndent(video, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("serializing video record: %w", err)
	}

	tmp, err := os.CreateTemp("", "ytpl-metadata-*.json")
	if err != nil {
		return nil, "", fmt.Errorf("creating metadata temp file: %w", err)
	}
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", fmt.Errorf("writing metadata temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, "", fmt.Errorf("closing metadata temp file: %w", err)
	}

	files[identifier+"_metadata.json"] = tmp.Name()
	return files, tmp.Name(), nil
}

// candidateFiles returns the video's local files that exist on disk,
// keyed by their upload name. Absence of a file is not an error, only an
// eligibility signal.
func candidateFiles(video *model.Video) map[string]string {
	files := make(map[string]string)
	for _, p := range []string{video.VideoPath, video.AudioPath, video.CommentsPath} {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files[filepath.Base(p)] = p
		}
	}
	return files
}
