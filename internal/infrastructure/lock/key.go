package lock

import "strings"

// SanitizeKey maps an arbitrary lock key onto [A-Za-z0-9._-] so it can be used
// as a single path element. Every other byte becomes '_'. Distinct keys that
// differ only in replaced characters collide; the key prefixes used by the
// application (open:, close:, log:, panel:, welcome:, event:) only ever carry
// numeric snowflakes and tokens, so collisions do not occur in practice.
func SanitizeKey(key string) string {
	if key == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		case c == '.' && i > 0:
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
