// Package shortcuts holds the local shortcut registry and the stable
// identifier scheme used when declaring shortcuts to the desktop portal.
package shortcuts

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Shortcut ids become D-Bus object path segments on the portal side, so they
// must satisfy this grammar.
var idPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Synthetic shortcuts live in their own namespace: derived ids never start
// with an underscore, so the two sets cannot collide.
const reservedPrefix = "_"

// NumericID derives a stable id from a host-assigned numeric action id.
// The "hk_" prefix keeps the id from starting with a digit, which would be
// illegal in an object path element.
func NumericID(n uint64) string {
	return fmt.Sprintf("hk_%d", n)
}

// NameID derives a stable id from a human-readable name. The name bytes are
// hashed so that two names differing only in path-illegal characters still
// map to distinct ids, and the id stays the same for as long as the name
// text is unchanged.
func NameID(kind, name string) string {
	sum := md5.Sum([]byte(name))
	return kind + "_" + hex.EncodeToString(sum[:])
}

// Reserved reports whether id belongs to the synthetic shortcut namespace.
func Reserved(id string) bool {
	return strings.HasPrefix(id, reservedPrefix)
}

// ValidID reports whether id is usable as a portal shortcut identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
