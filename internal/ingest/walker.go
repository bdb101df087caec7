package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MaxFileSize is the per-file admission limit. Files larger than this
// are silently skipped by the walker.
const MaxFileSize = 50 * 1024 * 1024

// defaultExcludes are directory names skipped entirely during the walk.
var defaultExcludes = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"__pycache__":   true,
	".pytest_cache": true,
	"dist":          true,
	"build":         true,
	".next":         true,
	"coverage":      true,
}

// Walk enumerates regular files under root depth-first with directory
// entries sorted by name, hashing each file's content. Hidden entries
// are skipped except .github (CI workflow files live there). Symlinks
// are never followed. Per-file read errors drop the file; only a
// missing or non-directory root is fatal.
func Walk(root string) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	var entries []FileEntry
	if err := walkDir(root, root, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkDir(root, dir string, out *[]FileEntry) error {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable subdirectory: drop it, same as an unreadable file.
		if dir != root {
			return nil
		}
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	// os.ReadDir sorts by name; keep the sort explicit so the aggregate
	// hash does not depend on that implementation detail.
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })

	for _, d := range dirents {
		name := d.Name()
		if name[0] == '.' && name != ".github" {
			continue
		}
		path := filepath.Join(dir, name)
		switch {
		case d.Type()&os.ModeSymlink != 0:
			continue
		case d.IsDir():
			if defaultExcludes[name] {
				continue
			}
			if err := walkDir(root, path, out); err != nil {
				return err
			}
		case d.Type().IsRegular():
			entry, ok := hashFile(root, path)
			if ok {
				*out = append(*out, entry)
			}
		}
	}
	return nil
}

func hashFile(root, path string) (FileEntry, bool) {
	info, err := os.Lstat(path)
	if err != nil || info.Size() > MaxFileSize {
		return FileEntry{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, false
	}
	sum := sha256.Sum256(data)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return FileEntry{}, false
	}
	return FileEntry{
		Path:         filepath.ToSlash(rel),
		AbsolutePath: path,
		SizeBytes:    int64(len(data)),
		ContentHash:  hex.EncodeToString(sum[:]),
	}, true
}

// SourceHash computes the aggregate hash: SHA-256 updated in sorted
// order over (relative path, content hash) pairs. It is a pure function
// of the file set, independent of filesystem order or timestamps.
func SourceHash(files []FileEntry) string {
	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.Path))
		h.Write([]byte(f.ContentHash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func buildContext(root, scratch string, md Metadata) (*Context, error) {
	files, err := Walk(root)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}
	return &Context{
		RootDir:    root,
		SourceHash: SourceHash(files),
		Files:      files,
		Metadata:   md,
		TotalSize:  total,
		FileCount:  len(files),
		scratch:    scratch,
	}, nil
}
