package ytpl

import (
	"time"

	"ytpl/internal/model"
)

// Notes recorded on status transitions driven by the merge engine.
const (
	noteStatusDetected = "Status detected during update"
	noteRemovedFromSrc = "Video no longer in playlist"
)

// Merge reconciles freshly fetched playlist data with previously stored
// data. The merged result is a monotonic superset of everything ever
// observed: videos that disappeared from the source are retained with a
// status transition, never dropped, and per-video status history and
// download evidence always survive a re-fetch.
//
// If existing is nil this is the first observation and fresh is returned
// unchanged.
func Merge(fresh, existing *model.Playlist, now time.Time) *model.Playlist {
	if existing == nil {
		return fresh
	}

	merged := make(map[string]*model.Video, len(existing.Videos))

	for id, old := range existing.Videos {
		if latest, ok := fresh.Videos[id]; ok {
			// Still present upstream: take the fresh record but keep the
			// accumulated history and first-seen timestamp.
			latest.StatusHistory = old.StatusHistory
			latest.FirstSeen = old.FirstSeen

			if latest.Status != old.Status {
				newStatus := latest.Status
				latest.Status = old.Status
				latest.UpdateStatus(newStatus, noteStatusDetected, now)
			}

			// A re-fetch never erases evidence of prior downloads or
			// uploads.
			latest.DownloadStatus = old.DownloadStatus
			latest.VideoPath = old.VideoPath
			latest.AudioPath = old.AudioPath
			latest.CommentsPath = old.CommentsPath
			latest.ArchiveStatus = old.ArchiveStatus
			latest.ArchiveIdentifier = old.ArchiveIdentifier
			latest.ArchiveURL = old.ArchiveURL
			latest.ArchiveDate = old.ArchiveDate
			latest.ArchiveError = old.ArchiveError

			merged[id] = latest
		} else {
			// Disappeared from the source. Live videos transition to
			// deleted; other statuses already explain the absence.
			if old.Status == model.StatusLive {
				old.UpdateStatus(model.StatusDeleted, noteRemovedFromSrc, now)
			}
			old.LastChecked = now
			merged[id] = old
		}
	}

	for id, v := range fresh.Videos {
		if _, ok := merged[id]; !ok {
			merged[id] = v
		}
	}

	existing.Title = fresh.Title
	existing.Description = fresh.Description
	existing.Channel = fresh.Channel
	existing.ChannelID = fresh.ChannelID
	existing.Uploader = fresh.Uploader
	existing.WebpageURL = fresh.WebpageURL
	existing.Videos = merged
	existing.VideoCount = len(merged)
	existing.LastUpdated = now

	return existing
}
