package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		location string
		want     SourceKind
	}{
		{"https://github.com/acme/skill", SourceGit},
		{"https://gitlab.com/acme/skill", SourceGit},
		{"https://bitbucket.org/acme/skill", SourceGit},
		{"git@github.com:acme/skill.git", SourceGit},
		{"https://example.com/repo.git", SourceGit},
		{"skill.zip", SourceArchive},
		{"skill.tar", SourceArchive},
		{"skill.tar.gz", SourceArchive},
		{"skill.tgz", SourceArchive},
		{"./local/dir", SourceLocal},
		{"/abs/path", SourceLocal},
		{"plain-name", SourceLocal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectKind(tc.location), "location %q", tc.location)
	}
}
