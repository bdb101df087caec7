package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// GitIngestor clones a remote repository into a scratch directory.
// A ref (branch, tag, or commit) forces a full clone plus checkout;
// without one a shallow clone of the default branch suffices.
type GitIngestor struct {
	Opts Options
}

func (g *GitIngestor) Kind() SourceKind { return SourceGit }

func (g *GitIngestor) Ingest(ctx context.Context, location string) (*Context, error) {
	dir, err := scratchDir(g.Opts.WorkDir, "skillgate-git-*")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.Opts.timeout())
	defer cancel()

	if err := g.clone(ctx, location, dir); err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup
		return nil, err
	}

	commit, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("%w: resolving HEAD: %v", ErrCloneFailed, err)
	}

	ic, err := buildContext(dir, dir, Metadata{
		Kind:             SourceGit,
		OriginalLocation: location,
		IngestedAt:       time.Now().UTC(),
		VCSCommit:        commit,
		VCSRef:           g.Opts.Ref,
	})
	if err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return ic, nil
}

func (g *GitIngestor) clone(ctx context.Context, url, dir string) error {
	if g.Opts.Ref == "" {
		if err := runGit(ctx, "", "clone", "--depth", "1", "--quiet", url, dir); err != nil {
			return fmt.Errorf("%w: %v", ErrCloneFailed, err)
		}
		return nil
	}
	// Full history so any commit id or tag is reachable for checkout.
	if err := runGit(ctx, "", "clone", "--quiet", url, dir); err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}
	if err := runGit(ctx, dir, "checkout", "--quiet", g.Opts.Ref); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnknownRef, g.Opts.Ref, err)
	}
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("git %s timed out", args[0])
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
		return fmt.Errorf("git %s: %s", args[0], msg)
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
