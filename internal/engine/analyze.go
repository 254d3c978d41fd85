package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

const strippedTags = "script, style, noscript, iframe, template, svg, link, meta"

type Analysis struct {
	Title       string
	Metadata    map[string]any
	Links       LinkSet
	CleanedHTML string
}

// Analyze reads title, metadata and links from a rendered page and produces
// a cleaned copy of its body. Links are resolved against the page URL (or a
// <base href>) and classified as internal when they share the page's host.
func Analyze(pageURL, html string) (*Analysis, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(html)); err != nil {
		return nil, fmt.Errorf("failed to parse OpenGraph: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := base.Parse(href); err == nil {
			base = ref
		}
	}

	a := &Analysis{Metadata: map[string]any{}}

	a.Title = extractTitle(doc)
	if a.Title == "" {
		a.Title = strings.TrimSpace(og.Title)
	}
	setIf(a.Metadata, "title", a.Title)
	setIf(a.Metadata, "description", firstNonEmpty(og.Description, metaContent(doc, "description")))
	setIf(a.Metadata, "keywords", metaContent(doc, "keywords"))
	setIf(a.Metadata, "author", metaContent(doc, "author"))
	setIf(a.Metadata, "og:title", og.Title)
	setIf(a.Metadata, "og:type", og.Type)
	setIf(a.Metadata, "og:url", og.URL)
	setIf(a.Metadata, "og:site_name", og.SiteName)
	if len(og.Images) > 0 && og.Images[0] != nil {
		setIf(a.Metadata, "og:image", og.Images[0].URL)
	}

	a.Links = extractLinks(doc, base)

	body := doc.Find("body")
	body.Find(strippedTags).Remove()
	cleaned, err := body.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render cleaned html: %w", err)
	}
	a.CleanedHTML = strings.TrimSpace(cleaned)

	return a, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return ""
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf("meta[name='%s']", name)).First().Attr("content")
	return strings.TrimSpace(content)
}

func extractLinks(doc *goquery.Document, base *url.URL) LinkSet {
	links := LinkSet{Internal: []Link{}, External: []Link{}}
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := base.Parse(href)
		if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
			return
		}
		ref.Fragment = ""
		abs := ref.String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		link := Link{Href: abs, Text: strings.Join(strings.Fields(s.Text()), " ")}
		if sameSite(ref.Hostname(), base.Hostname()) {
			links.Internal = append(links.Internal, link)
		} else {
			links.External = append(links.External, link)
		}
	})
	return links
}

func sameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

func setIf(m map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Enrich fills whatever an engine left out of a successful result from the
// page's own HTML.
func Enrich(pageURL string, res *Result) error {
	if !res.Success || res.HTML == "" {
		return nil
	}
	needLinks := len(res.Links.Internal) == 0 && len(res.Links.External) == 0
	if res.Title() != "" && !needLinks && res.CleanedHTML != "" && res.Markdown != "" {
		return nil
	}

	a, err := Analyze(pageURL, res.HTML)
	if err != nil {
		return err
	}
	if res.Metadata == nil {
		res.Metadata = map[string]any{}
	}
	for k, v := range a.Metadata {
		if _, ok := res.Metadata[k]; !ok {
			res.Metadata[k] = v
		}
	}
	if needLinks {
		res.Links = a.Links
	}
	if res.CleanedHTML == "" {
		res.CleanedHTML = a.CleanedHTML
	}
	if res.Markdown == "" && res.CleanedHTML != "" {
		markdown, err := Markdown(pageURL, res.CleanedHTML)
		if err != nil {
			return err
		}
		res.Markdown = markdown
	}
	return nil
}
