// Package masking redacts secret-shaped substrings in any string
// destined for output. Analyzers mask credential evidence before
// attaching it to a finding, and the report assembler masks every
// evidence field again before serialization.
package masking

import "regexp"

// maskedSuffix replaces everything after the first four characters of a
// matched secret. The masked form never re-matches a catalog pattern,
// which makes Mask idempotent.
const maskedSuffix = "****[MASKED]"

// Catalog of secret shapes. PEM blocks go first so the specific header
// pattern wins before the generic long-token rule eats the body.
var catalog = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[posur]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`[a-zA-Z0-9_-]{32,}`),
}

// wholeToken matches an input that is a single bare token of at least
// 20 identifier characters. Such tokens are masked as a whole even when
// no catalog entry matches.
var wholeToken = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)

// Mask replaces every catalog match in s with its masked form: the
// first four characters of the match followed by "****[MASKED]".
// Masking is idempotent: Mask(Mask(s)) == Mask(s).
func Mask(s string) string {
	if wholeToken.MatchString(s) {
		return maskMatch(s)
	}
	for _, re := range catalog {
		s = re.ReplaceAllStringFunc(s, maskMatch)
	}
	return s
}

func maskMatch(m string) string {
	if len(m) <= 4 {
		return m + maskedSuffix
	}
	return m[:4] + maskedSuffix
}
