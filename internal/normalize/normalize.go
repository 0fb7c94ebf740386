// Package normalize repairs assistant text that packs list items inline
// ("Summary: - Alpha: text - Beta: text") into block-level Markdown lists.
//
// Normalize runs two passes. The first promotes every inline " - Header:" to
// the start of its own paragraph. The second walks the lines and makes sure
// each list line that follows prose is separated from it by a blank line.
// Neither pass produces input the first pass would match again, so running
// Normalize on its own output is a no-op.
package normalize

import (
	"strings"
	"unicode"
)

// Normalize rewrites inline dash-delimited items into list lines and leaves
// everything else untouched. It is pure and deterministic.
func Normalize(text string) string {
	return spaceLists(promoteInline(text))
}

// promoteInline rewrites "X - Header: ..." to "X\n\n- Header: ...", where X is
// any non-newline character and Header starts with an uppercase letter and runs
// to the next colon on the same line. Matches are found left to right without
// overlapping, except that a header's closing colon may itself precede the
// next " - ", so "A: - B: - C:" promotes both B and C.
func promoteInline(text string) string {
	rs := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(rs); i++ {
		end, ok := matchHeader(rs, i)
		if !ok {
			b.WriteRune(rs[i])
			continue
		}
		// rs[i] is the preceding character, rs[i+4:end] the header without its colon.
		b.WriteRune(rs[i])
		b.WriteString("\n\n- ")
		b.WriteString(string(rs[i+4 : end]))
		// resume on the colon so it can act as the next match's preceding character
		i = end - 1
	}
	return b.String()
}

// matchHeader checks for rs[i] followed by " - ", an uppercase letter and a
// colon-terminated run. The run may not cross a newline or contain another
// " - ", which would otherwise be promoted on a second pass. It returns the
// index of the colon.
func matchHeader(rs []rune, i int) (int, bool) {
	if rs[i] == '\n' || i+4 >= len(rs) {
		return 0, false
	}
	if rs[i+1] != ' ' || rs[i+2] != '-' || rs[i+3] != ' ' || !unicode.IsUpper(rs[i+4]) {
		return 0, false
	}
	for j := i + 5; j < len(rs); j++ {
		switch rs[j] {
		case ':':
			return j, true
		case '\n':
			return 0, false
		case ' ':
			if j+2 < len(rs) && rs[j+1] == '-' && rs[j+2] == ' ' {
				return 0, false
			}
		}
	}
	return 0, false
}

// spaceLists inserts a blank line before a list line whose previously emitted
// line is non-blank prose. Existing blank lines are kept as they are.
func spaceLists(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if isListLine(line) && len(out) > 0 {
			prev := out[len(out)-1]
			if strings.TrimSpace(prev) != "" && !isListLine(prev) {
				out = append(out, "")
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// isListLine reports whether the trimmed line starts with a bullet marker
// followed by whitespace.
func isListLine(line string) bool {
	t := strings.TrimSpace(line)
	rs := []rune(t)
	if len(rs) < 2 {
		return false
	}
	switch rs[0] {
	case '-', '*', '•':
		return unicode.IsSpace(rs[1])
	}
	return false
}
