package ingest

import "strings"

// gitPrefixes identify remote VCS URLs.
var gitPrefixes = []string{
	"https://github.com/",
	"https://gitlab.com/",
	"https://bitbucket.org/",
	"git@",
}

// archiveSuffixes mark a source as an archive. Any match is enough
// here; the extractor format is chosen separately by archiveFormat.
var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar", ".zip"}

// DetectKind classifies a source descriptor: git URL first, then
// archive suffix, with local directory as the fallback.
func DetectKind(location string) SourceKind {
	for _, p := range gitPrefixes {
		if strings.HasPrefix(location, p) {
			return SourceGit
		}
	}
	if strings.HasSuffix(location, ".git") {
		return SourceGit
	}
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(location, s) {
			return SourceArchive
		}
	}
	return SourceLocal
}
