// Package archive provides clients for the remote long-term storage
// service. The real backend is archive.org, whose write API is
// S3-compatible (one bucket per item, metadata via x-archive-meta-*
// request headers) and whose existence checks go through the public
// metadata read API.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"ytpl/internal/config"
	"ytpl/internal/progress"
	"ytpl/internal/ytpl"
)

// Credentials is the archive.org S3 key pair.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// IAClient talks to archive.org: uploads through the S3-compatible write
// API, existence checks through the metadata read API.
type IAClient struct {
	uploader         *manager.Uploader
	http             *http.Client
	metadataEndpoint string
	logger           ytpl.Logger
}

var _ ytpl.ArchiveClient = (*IAClient)(nil)

// NewIAClient creates a client from config and the account's S3 key pair.
func NewIAClient(ctx context.Context, cfg config.ArchiveConfig, creds Credentials, logger ytpl.Logger) (*IAClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		// Sequential part reads keep the byte stream ordered, which the
		// progress phase heuristic depends on.
		u.Concurrency = 1
	})

	return &IAClient{
		uploader:         uploader,
		http:             &http.Client{Timeout: 30 * time.Second},
		metadataEndpoint: cfg.MetadataEndpoint,
		logger:           logger,
	}, nil
}

// Exists queries the metadata read API for an identifier. An item that has
// never been created returns an empty metadata document, which is treated
// as absent.
func (c *IAClient) Exists(ctx context.Context, identifier string) (ytpl.RemoteItem, error) {
	url := c.metadataEndpoint + "/" + identifier
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ytpl.RemoteItem{}, fmt.Errorf("building metadata request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ytpl.RemoteItem{}, fmt.Errorf("querying item metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ytpl.RemoteItem{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ytpl.RemoteItem{}, fmt.Errorf("metadata query returned status %d", resp.StatusCode)
	}

	var doc struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return ytpl.RemoteItem{}, fmt.Errorf("decoding item metadata: %w", err)
	}
	if len(doc.Metadata) == 0 {
		return ytpl.RemoteItem{}, nil
	}

	return ytpl.RemoteItem{
		Exists:     true,
		ExternalID: metadataString(doc.Metadata, ytpl.MetadataKeyExternalID),
		URL:        "https://archive.org/details/" + identifier,
	}, nil
}

// Upload sends each file to the item's bucket. Catalog metadata rides on
// the first object's request headers, which also creates the bucket;
// derivation is queued only with the final object.
func (c *IAClient) Upload(ctx context.Context, identifier string, files map[string]string, metadata map[string]string, sink ytpl.ProgressFunc) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, remoteName := range names {
		first := i == 0
		last := i == len(names)-1
		if err := c.uploadFile(ctx, identifier, remoteName, files[remoteName], metadata, first, last, sink); err != nil {
			return fmt.Errorf("uploading %s: %w", remoteName, err)
		}
	}
	return nil
}

func (c *IAClient) uploadFile(ctx context.Context, identifier, remoteName, localPath string, metadata map[string]string, first, last bool, sink ytpl.ProgressFunc) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}

	tracker := progress.NewTracker(remoteName, info.Size())
	body := progress.NewReader(f, tracker, sink)

	apiOpts := []func(*middleware.Stack) error{
		smithyhttp.SetHeaderValue("x-amz-auto-make-bucket", "1"),
	}
	derive := "0"
	if last {
		derive = "1"
	}
	apiOpts = append(apiOpts, smithyhttp.SetHeaderValue("x-archive-queue-derive", derive))
	if first {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			apiOpts = append(apiOpts, smithyhttp.SetHeaderValue("x-archive-meta-"+k, metadata[k]))
		}
	}

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(identifier),
		Key:    aws.String(remoteName),
		Body:   body,
	}, func(u *manager.Uploader) {
		u.ClientOptions = append(u.ClientOptions, s3.WithAPIOptions(apiOpts...))
	})
	if err != nil {
		return err
	}

	// Completion event so sinks always see 100%.
	if sink != nil && info.Size() > 0 {
		sink(remoteName, info.Size(), info.Size(), tracker.SpeedMBps(), 100, progress.PhaseUploading)
	}

	c.logger.Debug("file uploaded", "identifier", identifier, "file", remoteName, "bytes", info.Size())
	return nil
}

// metadataString reads a metadata field that the API may return as either
// a string or a list of strings.
func metadataString(md map[string]any, key string) string {
	switch v := md[key].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
