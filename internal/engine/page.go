package engine

// Page is one crawled page as returned by crawl.
type Page struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	HTML    string   `json:"html"`
	Links   []string `json:"links"`

	// CrawledAt is always empty. Engines do not report a crawl time.
	CrawledAt string `json:"crawledAt"`
}

type CrawlResult struct {
	Pages []Page `json:"pages"`
}

type HeadlessResult struct {
	HTML     string   `json:"html"`
	Markdown string   `json:"markdown"`
	Links    []string `json:"links"`
}
