package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id         TEXT PRIMARY KEY,
    kind           TEXT NOT NULL,
    provider       TEXT NOT NULL,
    range_start    TEXT,
    range_end      TEXT,
    method         TEXT,
    fingerprint    TEXT NOT NULL,
    days           INTEGER NOT NULL,
    total_cost     REAL NOT NULL,
    headline       TEXT,
    payload        TEXT NOT NULL,
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
`
