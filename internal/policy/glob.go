package policy

import (
	"regexp"
	"strings"
	"sync"
)

// globCache memoizes compiled patterns; exception globs repeat for
// every finding in a scan.
var globCache sync.Map // pattern -> *regexp.Regexp

// globMatch matches a slash-separated relative path against a glob
// where `*` matches within a path segment, `**` matches across
// segments, and `?` matches a single character. Matching is
// case-sensitive.
func globMatch(pattern, path string) bool {
	re := compileGlob(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(path)
}

func compileGlob(pattern string) *regexp.Regexp {
	if cached, ok := globCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}

	var b strings.Builder
	b.WriteString(`^`)
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				// `**/` also matches zero directories.
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString(`(?:.*/)?`)
				} else {
					b.WriteString(`.*`)
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		re = nil
	}
	globCache.Store(pattern, re)
	return re
}
