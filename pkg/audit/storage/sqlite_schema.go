package storage

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// Schema creates the audit trail tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL,

    satellite_id TEXT,
    request_id TEXT,
    phase TEXT NOT NULL,

    -- Decision payload
    decision_id TEXT,
    anomaly_type TEXT,
    severity TEXT,
    severity_score REAL,
    escalation TEXT,
    is_allowed BOOLEAN,
    recommended_action TEXT,
    allowed_actions TEXT,
    confidence REAL,
    reasoning TEXT,
    rule_fired TEXT,
    evaluated_at TIMESTAMP,

    -- Transition payload
    from_phase TEXT,
    to_phase TEXT,
    reason TEXT,
    recovery BOOLEAN,
    authorized_by TEXT,
    committed_at TIMESTAMP,

    checksum TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_records(kind);
CREATE INDEX IF NOT EXISTS idx_audit_phase ON audit_records(phase);
CREATE INDEX IF NOT EXISTS idx_audit_anomaly_type ON audit_records(anomaly_type);
CREATE INDEX IF NOT EXISTS idx_audit_escalation ON audit_records(escalation);
CREATE INDEX IF NOT EXISTS idx_audit_satellite_id ON audit_records(satellite_id);
`

// InsertSchemaVersion records the schema version on first initialization.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
