package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 2

// schemaDDL contains the CREATE TABLE statements for the current schema.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS users (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id        TEXT NOT NULL UNIQUE,
	email             TEXT,
	display_name      TEXT,
	target_account_id TEXT
);

CREATE TABLE IF NOT EXISTS issues (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	key         TEXT NOT NULL UNIQUE,
	summary     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	parent_key  TEXT,
	assignee_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	reporter_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	status      TEXT NOT NULL DEFAULT 'BACKLOG',
	type        TEXT NOT NULL DEFAULT 'TASK',
	priority    TEXT NOT NULL DEFAULT 'MEDIUM',
	description TEXT,
	pulled_at   TEXT NOT NULL,
	target_key  TEXT
);

CREATE TABLE IF NOT EXISTS comments (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id  INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	source_id TEXT NOT NULL,
	body      TEXT,
	author_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	target_id TEXT,
	UNIQUE(issue_id, source_id)
);

CREATE TABLE IF NOT EXISTS attachments (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id        INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	source_id       TEXT NOT NULL,
	filename        TEXT,
	mime_type       TEXT NOT NULL,
	size            INTEGER NOT NULL DEFAULT 0,
	blob_key        TEXT NOT NULL,
	source_media_id TEXT,
	target_id       TEXT,
	target_media_id TEXT,
	UNIQUE(issue_id, source_id)
);

CREATE TABLE IF NOT EXISTS activity_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id   INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	pipeline   TEXT NOT NULL,
	event      TEXT NOT NULL,
	detail     TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_comments_issue_id ON comments(issue_id);
CREATE INDEX IF NOT EXISTS idx_attachments_issue_id ON attachments(issue_id);
CREATE INDEX IF NOT EXISTS idx_activity_log_issue_id ON activity_log(issue_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they migrate TO.
// For example, migrations[2] migrates from version 1 to version 2.
var migrations = map[int]func(tx *sql.Tx) error{
	// Version 2 records the target issue key found or created by push.
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(`ALTER TABLE issues ADD COLUMN target_key TEXT`)
		return err
	},
}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("snapshot schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
