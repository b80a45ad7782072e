package ytpl

import (
	"context"

	"ytpl/internal/progress"
)

// MetadataKeyExternalID is the remote catalog field that embeds the source
// video id in an archived item. It is how the uploader recognizes its own
// items during duplicate detection.
const MetadataKeyExternalID = "youtube_video_id"

// RemoteItem describes the result of an existence check against the remote
// archive service.
type RemoteItem struct {
	Exists bool
	// ExternalID is the source video id embedded in the remote item's
	// metadata, empty if the item does not carry one.
	ExternalID string
	URL        string
}

// ProgressFunc receives streaming progress events during an upload.
type ProgressFunc = progress.SinkFunc

// ArchiveClient is the remote long-term storage service items are uploaded
// to. Identifiers are stable remote resource names; uploading the same
// identifier twice targets the same remote item.
type ArchiveClient interface {
	// Exists queries the remote service for an identifier.
	Exists(ctx context.Context, identifier string) (RemoteItem, error)

	// Upload sends the given files (remote name -> local path) to the item
	// named by identifier, attaching the catalog metadata. Progress events
	// are delivered through sink, which may be nil.
	Upload(ctx context.Context, identifier string, files map[string]string, metadata map[string]string, sink ProgressFunc) error
}
