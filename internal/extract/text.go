package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultDescription = "{{default.description}}"
	htmlSpace          = " \t\n\f\r"
)

var (
	newlineRuns = regexp.MustCompile(`[\n]+|[\r\n]+`)
	// Unicode aware: non-breaking and other Z category spaces count.
	spaceRuns   = regexp.MustCompile(`[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]{2,}`)
	punctuation = strings.NewReplacer(
		"\u2019", "'",
		"\u201c", `"`,
		"\u201d", `"`,
		"\u00a0", "",
		"\u00b7", "",
		"\u2022", "",
		"\u2013", "-",
		"\u200b", "",
	)
)

// StripTags returns the text content of an HTML fragment with entities
// decoded. Leading whitespace is kept even though the HTML parser drops
// it before the body.
func StripTags(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	leading := s[:len(s)-len(strings.TrimLeft(s, htmlSpace))]
	return leading + doc.Text(), nil
}

// NormalizeDescription flattens already stripped text onto one line and
// maps typographic punctuation to ASCII. The portal's unfilled template
// placeholder becomes empty.
func NormalizeDescription(s string) string {
	if s == defaultDescription {
		return ""
	}
	s = newlineRuns.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return punctuation.Replace(s)
}
