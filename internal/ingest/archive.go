package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveIngestor extracts a zip or tar archive into a scratch
// directory using the matching external extractor. Entries whose
// normalized path would escape the scratch directory are refused
// before extraction begins.
type ArchiveIngestor struct {
	Opts Options
}

func (a *ArchiveIngestor) Kind() SourceKind { return SourceArchive }

func (a *ArchiveIngestor) Ingest(ctx context.Context, location string) (*Context, error) {
	format := archiveFormat(location)
	if format == "" {
		return nil, fmt.Errorf("%w: unsupported suffix on %s", ErrBadArchive, location)
	}
	if _, err := os.Stat(location); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, location)
	}

	dir, err := scratchDir(a.Opts.WorkDir, "skillgate-archive-*")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.Opts.timeout())
	defer cancel()

	if err := extract(ctx, format, location, dir); err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup
		return nil, err
	}

	ic, err := buildContext(dir, dir, Metadata{
		Kind:             SourceArchive,
		OriginalLocation: location,
		IngestedAt:       time.Now().UTC(),
		ArchiveFormat:    format,
	})
	if err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return ic, nil
}

// archiveFormat maps a filename suffix to the extractor family.
func archiveFormat(location string) string {
	switch {
	case strings.HasSuffix(location, ".zip"):
		return "zip"
	case strings.HasSuffix(location, ".tar.gz"), strings.HasSuffix(location, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(location, ".tar"):
		return "tar"
	default:
		return ""
	}
}

func extract(ctx context.Context, format, src, dst string) error {
	entries, err := listEntries(ctx, format, src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	for _, entry := range entries {
		if escapesDir(entry) {
			return fmt.Errorf("%w: %q", ErrPathTraversal, entry)
		}
	}

	var cmd *exec.Cmd
	if format == "zip" {
		cmd = exec.CommandContext(ctx, "unzip", "-q", src, "-d", dst)
	} else {
		// tar auto-detects compression with -xf.
		cmd = exec.CommandContext(ctx, "tar", "-xf", src, "-C", dst)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: extraction timed out", ErrBadArchive)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrBadArchive, msg)
	}
	return nil
}

func listEntries(ctx context.Context, format, src string) ([]string, error) {
	var cmd *exec.Cmd
	if format == "zip" {
		cmd = exec.CommandContext(ctx, "unzip", "-Z1", src)
	} else {
		cmd = exec.CommandContext(ctx, "tar", "-tf", src)
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// escapesDir reports whether an archive entry path would land outside
// the extraction directory.
func escapesDir(entry string) bool {
	if filepath.IsAbs(entry) || strings.HasPrefix(entry, "/") {
		return true
	}
	clean := filepath.Clean(filepath.FromSlash(entry))
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}
