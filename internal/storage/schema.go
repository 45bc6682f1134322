package storage

const schema = `
-- The 'entries' table is the durable local key-value store. Values are
-- opaque strings; callers own their encoding.
CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
