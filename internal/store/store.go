/*
PURPOSE:
  Storage port for run artifacts: the reduced mechanism, the reduction trace and the
  flame-speed report. The output location is either a local directory or an S3 prefix.

REQUIREMENTS:
  User-specified:
  - The reduction is skipped when the reduced mechanism already exists.

  Implementation-discovered:
  - Batch runs write their artifacts to object storage (s3://bucket/prefix).
  - Tests need an in-memory backend.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine/runner.go, internal/cli
  - Implementations: fs.go (go-billy), s3.go (aws-sdk-go-v2)

ERROR HANDLING:
  - Read of a missing key returns an error wrapping ErrNotFound.

IMPLEMENTATION RULES:
  - Keys are slash separated and relative to the store root.

USAGE:
  st, err := store.Open(ctx, cfg.OutputDir)
  ok, err := st.Exists(ctx, "modified_mechanism.yaml")

SELF-HEALING INSTRUCTIONS:
  - If a new scheme is needed, add it to Open().

RELATED FILES:
  - internal/store/fs.go
  - internal/store/s3.go

MAINTENANCE:
  - Keep both implementations behaviorally identical; store_test.go runs the same suite on both.
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store persists named artifacts.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	// Create opens key for streaming writes. The artifact is complete once Close returns nil.
	Create(ctx context.Context, key string) (io.WriteCloser, error)
	// Location describes where key lives, for logging.
	Location(key string) string
}

// Open returns the store for a location: s3://bucket/prefix or a local directory.
func Open(ctx context.Context, location string) (Store, error) {
	if !strings.HasPrefix(location, "s3://") {
		return NewOSFS(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid output location %q: %w", location, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid output location %q: missing bucket", location)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), u.Host, strings.Trim(u.Path, "/")), nil
}
