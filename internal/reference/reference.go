// Package reference recognises timestamp-keyed wiki references such as
// [[20200314161751_Some Title]] and [[20200314161751]].
package reference

import (
	"iter"
	"regexp"
)

// IdentifierLen is the number of digits in a reference identifier.
const IdentifierLen = 14

var (
	// The label class matches letters and digits in any script, '_' and
	// spaces. Combining marks are not word characters.
	tagRe        = regexp.MustCompile(`\[\[(\d{14})_?([\p{L}\p{N}_ ]*)\]\]`)
	identifierRe = regexp.MustCompile(`^\d{14}$`)
)

// Tag is one reference occurrence within a line.
type Tag struct {
	Identifier string
	Label      string
	// Start and End are byte offsets of the whole [[...]] span.
	Start int
	End   int
}

// DisplayText returns the label, or the identifier when the label is empty.
func (t Tag) DisplayText() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Identifier
}

// Glob returns the file-name glob that locates the note for t.
func (t Tag) Glob() string {
	return "*" + t.Identifier + "*"
}

// Find returns the first tag in line.
func Find(line string) (Tag, bool) {
	return findFrom(line, 0)
}

// Spans yields the tags of line from left to right. The sequence is lazy:
// each step matches only as far as the next tag.
func Spans(line string) iter.Seq[Tag] {
	return func(yield func(Tag) bool) {
		offset := 0
		for offset <= len(line) {
			tag, ok := findFrom(line, offset)
			if !ok || !yield(tag) {
				return
			}
			offset = tag.End
		}
	}
}

// Count returns the number of tags in line.
func Count(line string) int {
	n := 0
	for range Spans(line) {
		n++
	}
	return n
}

// Identifiers returns the distinct identifiers referenced in text, in
// order of first appearance.
func Identifiers(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for tag := range Spans(text) {
		if _, ok := seen[tag.Identifier]; ok {
			continue
		}
		seen[tag.Identifier] = struct{}{}
		out = append(out, tag.Identifier)
	}
	return out
}

// ValidIdentifier reports whether s is a well-formed identifier.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

func findFrom(line string, offset int) (Tag, bool) {
	loc := tagRe.FindStringSubmatchIndex(line[offset:])
	if loc == nil {
		return Tag{}, false
	}
	return Tag{
		Identifier: line[offset+loc[2] : offset+loc[3]],
		Label:      line[offset+loc[4] : offset+loc[5]],
		Start:      offset + loc[0],
		End:        offset + loc[1],
	}, true
}
