package rewriter

import "strings"

// Link is the rewritten form of a reference tag.
type Link struct {
	Display string
	// Target is the escaped file path, empty when unresolved.
	Target string
}

// String renders l as a Markdown link whose visible text keeps the
// double-bracket notation: [\[\[Display\]\]](Target).
func (l Link) String() string {
	return `[\[\[` + l.Display + `\]\]](` + l.Target + ")"
}

const upperhex = "0123456789ABCDEF"

// EscapePath percent-encodes every byte of p outside the unreserved set
// and '/', using upper-case hex.
func EscapePath(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', '/':
		return true
	}
	return false
}
