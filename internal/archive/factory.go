package archive

import (
	"context"
	"fmt"

	"ytpl/internal/config"
	"ytpl/internal/ytpl"
)

// NewClientFromConfig creates an ArchiveClient based on the archive config
// type. The "ia" type requires a key pair from the auth store.
func NewClientFromConfig(ctx context.Context, cfg config.ArchiveConfig, creds Credentials, logger ytpl.Logger) (ytpl.ArchiveClient, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryClient(), nil
	case "ia", "":
		if creds.AccessKey == "" || creds.SecretKey == "" {
			return nil, fmt.Errorf("ia archive requires an S3 key pair: run 'ytpl auth archive' first")
		}
		return NewIAClient(ctx, cfg, creds, logger)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
