package postgres

// Migrations returns the embedded schema history in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_kv_blobs",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "kv_blobs_namespace",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: KV BLOBS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS kv_blobs (
    key         TEXT PRIMARY KEY,
    value       BYTEA NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_kv_blobs_updated_at ON kv_blobs(updated_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS kv_blobs;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: NAMESPACES
// ══════════════════════════════════════════════════════════════════════════════

// One database can host several installs; each owns a namespace.
const migration002Up = `
ALTER TABLE kv_blobs ADD COLUMN IF NOT EXISTS namespace TEXT NOT NULL DEFAULT 'default';
ALTER TABLE kv_blobs DROP CONSTRAINT IF EXISTS kv_blobs_pkey;
ALTER TABLE kv_blobs ADD PRIMARY KEY (namespace, key);
`

const migration002Down = `
DELETE FROM kv_blobs WHERE namespace <> 'default';
ALTER TABLE kv_blobs DROP CONSTRAINT IF EXISTS kv_blobs_pkey;
ALTER TABLE kv_blobs DROP COLUMN IF EXISTS namespace;
ALTER TABLE kv_blobs ADD PRIMARY KEY (key);
`
