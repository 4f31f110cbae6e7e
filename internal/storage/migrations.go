package storage

import "database/sql"

// CurrentVersion is the schema version this module targets (spec §4.3,
// design note (b): the specification targets the v5 shape after historical
// churn that added then removed a paper_id column upstream).
const CurrentVersion = 5

// migration is one numbered, idempotent step in the registry. Each must
// tolerate being re-run against a database that already has the
// column/table it creates.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations is the explicit, ordered registry. Fresh databases skip
// replay and jump straight to CurrentVersion (see ensureSchema).
var migrations = []migration{
	{1, migrateV1},
	{2, migrateV2},
	{3, migrateV3},
	{5, migrateV5},
}

func migrateV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS papers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		paper_hash INTEGER UNIQUE,
		title_hash INTEGER,
		title TEXT,
		abstract TEXT,
		authors TEXT,
		published_date TEXT,
		pdf_path TEXT,
		source_url TEXT,
		downloaded_date TEXT,
		source TEXT,
		synced_to_cloud INTEGER DEFAULT 0,
		language TEXT,
		category TEXT,
		run_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_papers_title_hash ON papers(title_hash);
	`)
	return err
}

func migrateV2(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_papers_run_id ON papers(run_id);`)
	return err
}

func migrateV3(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_papers_synced ON papers(synced_to_cloud);`)
	return err
}

// migrateV5 corresponds to the upstream removal of a transient paper_id
// column (added then dropped at v4 in the system this was distilled from);
// there is nothing left to do against a database created directly at v1-v3,
// it exists purely to record that v4's addition never applies to new schemas.
func migrateV5(tx *sql.Tx) error {
	return nil
}

// ensureSchema brings db up to CurrentVersion. A fresh database (no rows in
// schema_version) jumps directly there without replaying history. A
// database whose recorded version exceeds CurrentVersion is left
// untouched; callers open such a database read-only with a warning.
func ensureSchema(db *sql.DB) (openedVersion int, newerThanSupported bool, err error) {
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT
	)`); err != nil {
		return 0, false, err
	}

	var maxVersion sql.NullInt64
	if err = db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&maxVersion); err != nil {
		return 0, false, err
	}

	fresh := !maxVersion.Valid
	current := int(maxVersion.Int64)

	if current > CurrentVersion {
		return current, true, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	if fresh {
		if err = migrateV1(tx); err != nil {
			return 0, false, err
		}
		for _, m := range migrations {
			if _, err = tx.Exec(`INSERT OR IGNORE INTO schema_version(version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
				return 0, false, err
			}
		}
		if err = tx.Commit(); err != nil {
			return 0, false, err
		}
		return CurrentVersion, false, nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err = m.apply(tx); err != nil {
			return 0, false, err
		}
		if _, err = tx.Exec(`INSERT OR IGNORE INTO schema_version(version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
			return 0, false, err
		}
		current = m.version
	}
	if err = tx.Commit(); err != nil {
		return 0, false, err
	}
	return current, false, nil
}
