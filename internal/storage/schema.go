package storage

// Schema contains SQL statements to create database tables.
const Schema = `
-- Responses table: one row per archived response, body kept byte for byte
CREATE TABLE IF NOT EXISTS responses (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    normalized_url TEXT NOT NULL,
    host TEXT NOT NULL,
    request_url TEXT,
    status_code INTEGER NOT NULL,
    kind TEXT NOT NULL,
    headers BLOB NOT NULL,
    body BLOB NOT NULL,
    body_size INTEGER NOT NULL,
    flags TEXT NOT NULL DEFAULT '[]',
    encoding_override TEXT,
    encoding TEXT,
    encoding_source TEXT,
    fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_responses_normalized ON responses(normalized_url);
CREATE INDEX IF NOT EXISTS idx_responses_host ON responses(host);
CREATE INDEX IF NOT EXISTS idx_responses_fetched_at ON responses(fetched_at);
`

// ViewsSchema contains SQL statements to create summary views.
const ViewsSchema = `
CREATE VIEW IF NOT EXISTS encoding_summary AS
SELECT
    COALESCE(encoding, 'binary') AS encoding,
    COALESCE(encoding_source, '') AS encoding_source,
    COUNT(*) AS responses,
    SUM(body_size) AS total_bytes
FROM responses
GROUP BY encoding, encoding_source
ORDER BY responses DESC;
`
