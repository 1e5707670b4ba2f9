// ABOUTME: Tests for timedtext XML decoding and caption cleanup
// ABOUTME: Verifies double-escaped entities, inline tags, and timing attributes
package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimedText(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0" dur="1.5">Don&amp;#39;t panic</text>` +
		`<text start="1.5" dur="2.25">&lt;font color=&quot;#E5E5E5&quot;&gt;hello&lt;/font&gt;
world</text>` +
		`<text start="3.75" dur="1"> </text>` +
		`<text start="4.75" dur="1">fish &amp;amp; chips</text>` +
		`</transcript>`

	segments, err := parseTimedText([]byte(doc))
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, "Don't panic", segments[0].Text)
	assert.InDelta(t, 0.0, segments[0].Start, 1e-9)
	assert.InDelta(t, 1.5, segments[0].Duration, 1e-9)

	assert.Equal(t, "hello world", segments[1].Text)
	assert.InDelta(t, 1.5, segments[1].Start, 1e-9)
	assert.InDelta(t, 2.25, segments[1].Duration, 1e-9)

	assert.Equal(t, "fish & chips", segments[2].Text)
}

func TestParseTimedText_Invalid(t *testing.T) {
	_, err := parseTimedText([]byte("<transcript><text>unclosed"))
	assert.Error(t, err)
}

func TestCleanCaption(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  spaced\n\tout  ", "spaced out"},
		{"<i>em</i>phasis", "emphasis"},
		{"line<br/>break", "line break"},
		{"a &gt; b", "a > b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanCaption(tt.in))
		})
	}
}
