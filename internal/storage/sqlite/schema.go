// ABOUTME: SQLite schema for the local vector index backend
// ABOUTME: One row per index plus one row per entry with the vector as a BLOB
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Named indexes and the dimension/metric they were created with
CREATE TABLE IF NOT EXISTS vector_indexes (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    metric TEXT NOT NULL DEFAULT 'cosine',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Entries (transcript chunks) keyed by index and id
CREATE TABLE IF NOT EXISTS vector_entries (
    index_name TEXT NOT NULL REFERENCES vector_indexes(name) ON DELETE CASCADE,
    id TEXT NOT NULL,
    video_id TEXT,
    vector BLOB NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (index_name, id)
);

CREATE INDEX IF NOT EXISTS idx_entries_video ON vector_entries(index_name, video_id);
`
