package journal

import "time"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one answered request.
type Entry struct {
	ID        string
	Session   string
	RequestID string
	Method    string
	Target    string
	Status    string
	ErrorKind string
	Message   string
	Latency   time.Duration
	CreatedAt time.Time
	Pages     []PageRecord
}

type PageRecord struct {
	URL           string
	Title         string
	LinkCount     int
	ContentLength int
}

// PageHit is a page found by Search, with the request that produced it.
type PageHit struct {
	PageRecord
	RequestRef string
	Method     string
	CreatedAt  time.Time
}
