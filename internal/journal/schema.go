package journal

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- One row per answered request
CREATE TABLE IF NOT EXISTS requests (
    id TEXT PRIMARY KEY,
    session TEXT NOT NULL,
    request_id TEXT NOT NULL,
    method TEXT NOT NULL,
    target TEXT,
    status TEXT NOT NULL,
    error_kind TEXT,
    message TEXT,
    latency_ms INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
CREATE INDEX IF NOT EXISTS idx_requests_method ON requests(method);
CREATE INDEX IF NOT EXISTS idx_requests_session ON requests(session);

-- Pages returned by crawl and fetch_headless
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_ref TEXT NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    title TEXT,
    link_count INTEGER NOT NULL,
    content_length INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_request ON pages(request_ref);

-- FTS5 over page titles and urls
CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
    url, title,
    content=pages,
    content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
    INSERT INTO pages_fts(rowid, url, title)
    VALUES (NEW.id, NEW.url, NEW.title);
END;

CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
    INSERT INTO pages_fts(pages_fts, rowid, url, title)
    VALUES ('delete', OLD.id, OLD.url, OLD.title);
END;
`
