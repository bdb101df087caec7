package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalIngestor scans a directory in place. It owns no scratch
// directory; Cleanup on its contexts is a no-op.
type LocalIngestor struct{}

func (l *LocalIngestor) Kind() SourceKind { return SourceLocal }

func (l *LocalIngestor) Ingest(_ context.Context, location string) (*Context, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, location)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, location)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", location, err)
	}
	return buildContext(abs, "", Metadata{
		Kind:             SourceLocal,
		OriginalLocation: location,
		IngestedAt:       time.Now().UTC(),
	})
}
