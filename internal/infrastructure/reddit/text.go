package reddit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "p, li, pre, blockquote, h1, h2, h3, h4, h5, h6"

// htmlText turns rendered markdown into plain text, one line per block.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var lines []string
	doc.Find(blockSelector).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(blockSelector).Length() == 0
		}).
		Each(func(_ int, s *goquery.Selection) {
			if line := collapse(s.Text()); line != "" {
				lines = append(lines, line)
			}
		})

	if len(lines) == 0 {
		return collapse(doc.Text())
	}
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
