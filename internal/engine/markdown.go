package engine

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Markdown converts HTML to CommonMark with fenced code blocks. Relative
// links and images are resolved against pageURL.
func Markdown(pageURL, html string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}

	converter := md.NewConverter(base.Host, true, &md.Options{
		CodeBlockStyle: "fenced",
		GetAbsoluteURL: func(_ *goquery.Selection, rawURL string, _ string) string {
			ref, err := base.Parse(strings.TrimSpace(rawURL))
			if err != nil || ref.Scheme == "data" {
				return rawURL
			}
			return ref.String()
		},
	})

	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return strings.TrimSpace(out), nil
}
