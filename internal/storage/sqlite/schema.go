// ABOUTME: SQLite database schema for RFP requirement and corpus storage
// ABOUTME: Creates all tables and indexes for local persistence
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Requirements table (one row per uploaded question, responses written in place)
CREATE TABLE IF NOT EXISTS requirements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    requirement TEXT NOT NULL,
    category TEXT,
    rfp_name TEXT,
    uploaded_by TEXT,
    openai_response TEXT,
    deepseek_response TEXT,
    anthropic_response TEXT,
    final_response TEXT,
    fitment TEXT,
    similar_questions TEXT,
    model_provider TEXT,
    generation_status TEXT,
    generation_error TEXT,
    generated_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Historical pairs table (retrieval corpus with embedded vectors)
CREATE TABLE IF NOT EXISTS historical_pairs (
    id TEXT PRIMARY KEY,
    category TEXT,
    requirement TEXT NOT NULL,
    response TEXT NOT NULL,
    customer TEXT,
    vector BLOB,
    metadata TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_requirements_category ON requirements(category);
CREATE INDEX IF NOT EXISTS idx_requirements_status ON requirements(generation_status);
CREATE INDEX IF NOT EXISTS idx_pairs_category ON historical_pairs(category);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
