// Package policies embeds the default scan policy used when no
// --policy flag is given.
package policies

import _ "embed"

//go:embed default.yaml
var defaultPolicy []byte

// Default returns the embedded default policy document.
func Default() []byte {
	return defaultPolicy
}
