package sqlite

const schema = `
-- Source documents (L0). path is relative to the sources root.
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT 'General',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

-- Summary versions (L1). Append-only: rebuilds insert a new row and flip the
-- previous active one to SUPERSEDED. The partial unique index is the
-- single-active-version guarantee.
CREATE TABLE IF NOT EXISTS summary_versions (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL REFERENCES documents(id),
    version INTEGER NOT NULL CHECK(version >= 1),
    content TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK(status IN ('ACTIVE', 'SUPERSEDED')),
    model_config TEXT NOT NULL DEFAULT '{}',
    prompt_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source_id, version)
);

CREATE INDEX IF NOT EXISTS idx_summary_versions_source ON summary_versions(source_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_summary_versions_active
    ON summary_versions(source_id) WHERE status = 'ACTIVE';

-- Insights (L2): cross-document syntheses built from clusters.
CREATE TABLE IF NOT EXISTS insights (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT 'General',
    model_config TEXT NOT NULL DEFAULT '{}',
    prompt_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Which summaries fed which insight. A summary in any cluster is excluded
-- from future sweeps.
CREATE TABLE IF NOT EXISTS cluster_members (
    insight_id TEXT NOT NULL REFERENCES insights(id) ON DELETE CASCADE,
    summary_id TEXT NOT NULL,
    PRIMARY KEY (insight_id, summary_id)
);

CREATE INDEX IF NOT EXISTS idx_cluster_members_summary ON cluster_members(summary_id);

-- Embeddings, keyed by the summary or insight they encode. Vectors are
-- JSON arrays; similarity is computed in-process.
CREATE TABLE IF NOT EXISTS embeddings (
    owner_id TEXT PRIMARY KEY,
    vector TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Parsed review state. Exactly one of summary_id / insight_id is set.
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    summary_id TEXT,
    insight_id TEXT,
    rating TEXT NOT NULL DEFAULT 'PENDING' CHECK(rating IN ('PENDING', 'GOOD', 'OK', 'BAD')),
    decision TEXT NOT NULL DEFAULT 'PENDING' CHECK(decision IN ('PENDING', 'ACCEPT', 'REBUILD', 'DISCARD')),
    issues TEXT NOT NULL DEFAULT '[]',
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((summary_id IS NOT NULL) + (insight_id IS NOT NULL) = 1)
);

CREATE INDEX IF NOT EXISTS idx_reviews_summary ON reviews(summary_id);
CREATE INDEX IF NOT EXISTS idx_reviews_insight ON reviews(insight_id);

-- Content-addressed prompt snapshots. The ID hashes prompt text plus model
-- config, so re-registering an unchanged prompt is a no-op.
CREATE TABLE IF NOT EXISTS prompt_versions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    model_config TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Migration tracking
CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
