package durable

// schemaSQL creates the durable log's tables if they do not already
// exist. Unlike the teacher's schema, this is a Go string constant rather
// than a go:embed'd .sql file: the log has two small, fixed-shape tables
// with no need for a separate schema artifact a migration tool would
// diff against.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS merges (
	seq             INTEGER PRIMARY KEY,
	txn_id          TEXT NOT NULL,
	query_name      TEXT NOT NULL,
	root_id         TEXT NOT NULL,
	payload         TEXT NOT NULL,
	variables       TEXT NOT NULL,
	edited_node_ids TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_merges_txn ON merges(txn_id);

CREATE TABLE IF NOT EXISTS checkpoints (
	seq      INTEGER PRIMARY KEY,
	txn_id   TEXT NOT NULL,
	snapshot TEXT NOT NULL
);
`

const currentSchemaVersion = 1
