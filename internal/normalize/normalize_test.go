package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_InlineList(t *testing.T) {
	in := "Summary: - Alpha: text - Beta: text"
	want := "Summary:\n\n- Alpha: text\n\n- Beta: text"

	out := Normalize(in)
	require.Equal(t, want, out)
	require.Equal(t, out, Normalize(out))

	lines := strings.Split(out, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "- ") {
			require.Greater(t, i, 0)
			require.Empty(t, lines[i-1], "list line %q must follow a blank line", l)
		}
	}
}

func TestNormalize_Unchanged(t *testing.T) {
	cases := []string{
		"",
		"plain prose",
		"This is a well-known, battle-tested approach.",
		"Ranges like 3 - 5 are fine.",
		"lower - case: headers are not promoted",
		"Note - no colon here at all",
		"Already:\n\n- Alpha: a\n- Beta: b",
		"line one\n\n\nline two",
		"trailing newline\n",
	}
	for _, in := range cases {
		require.Equal(t, in, Normalize(in), "%q", in)
	}
}

func TestNormalize_Cases(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			name: "colon chain",
			in:   "Options: - Fast: - Slow: pick one",
			want: "Options:\n\n- Fast:\n\n- Slow: pick one",
		},
		{
			name: "list after prose gets a blank line",
			in:   "Here is what I found\n- one\n- two",
			want: "Here is what I found\n\n- one\n- two",
		},
		{
			name: "bullets and stars",
			in:   "Intro\n• first\ntext\n* second",
			want: "Intro\n\n• first\ntext\n\n* second",
		},
		{
			name: "indented list line",
			in:   "Intro\n   - nested",
			want: "Intro\n\n   - nested",
		},
		{
			name: "header may not span lines",
			in:   "a - Header\nnext: line",
			want: "a - Header\nnext: line",
		},
		{
			name: "header may not contain a dash separator",
			in:   "a - B - C: x",
			want: "a - B\n\n- C: x",
		},
		{
			name: "dash without trailing space is not a list line",
			in:   "Intro\n-5 degrees",
			want: "Intro\n-5 degrees",
		},
		{
			name: "unicode preceding character",
			in:   "Résumé é - Überblick: gut",
			want: "Résumé é\n\n- Überblick: gut",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Normalize(tc.in)
			require.Equal(t, tc.want, out)
			require.Equal(t, out, Normalize(out), "second pass must be a no-op")
		})
	}
}
