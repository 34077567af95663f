package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "<p>Lakes <b>and</b> rivers</p>", want: "Lakes and rivers"},
		{in: "Roads &amp; highways", want: "Roads & highways"},
		{in: `<a href="https://gisdata.mn.gov">portal</a> link`, want: "portal link"},
		{in: "", want: ""},
		{in: "\n\n  Roads of Anoka", want: "\n\n  Roads of Anoka"},
		{in: " \t<p>Lakes</p>", want: " \tLakes"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := StripTags(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStripTagsLeadingWhitespaceCollapses(t *testing.T) {
	got, err := StripTags("\n\n  Roads of Anoka")
	require.NoError(t, err)
	assert.Equal(t, " Roads of Anoka", NormalizeDescription(got))
}

func TestNormalizeDescription(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "placeholder", in: "{{default.description}}", want: ""},
		{name: "newlines", in: "one\r\ntwo\n\nthree", want: "one two three"},
		{name: "space runs", in: "a    b\t\tc", want: "a b c"},
		{name: "non-breaking space run", in: "a\u00a0\u00a0b", want: "a b"},
		{name: "single non-breaking space is dropped", in: "a\u00a0b", want: "ab"},
		{name: "quotes", in: "\u201cit\u2019s\u201d", want: `"it's"`},
		{name: "dash and bullets", in: "1990\u20132000 \u2022 daily\u00b7\u200b", want: "1990-2000  daily"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDescription(tc.in))
		})
	}
}
