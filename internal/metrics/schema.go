package metrics

import (
	"database/sql"

	"codeberg.org/avhall/tierctl/internal/errors"
	"codeberg.org/avhall/tierctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS tier_snapshots (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp_ms INTEGER NOT NULL,
	       rate_current INTEGER NOT NULL CHECK (typeof(rate_current) = 'integer'),
	       rate_mean    REAL NOT NULL,
	       tier         TEXT NOT NULL CHECK (tier IN ('low', 'medium', 'high')),
	       cooldown_ms  INTEGER NOT NULL CHECK (cooldown_ms >= 0),
	       transitioned INTEGER NOT NULL CHECK (transitioned IN (0, 1))
	   );`

	insertSnapshotSQL = `
    INSERT INTO tier_snapshots (
        timestamp_ms,
        rate_current, rate_mean,
        tier, cooldown_ms, transitioned
    ) VALUES (?, ?, ?, ?, ?, ?)`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized")

	return nil
}

// ValidateSchema ensures the database carries the current schema,
// initializing an empty database on first use
func ValidateSchema(db *sql.DB) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	switch version {
	case 0:
		return InitSchema(db)
	case SchemaVersion:
		return nil
	default:
		return errFactory.WithData(ErrSchemaValidationFailed, struct {
			Found    int
			Expected int
		}{
			Found:    version,
			Expected: SchemaVersion,
		})
	}
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}

// GetInsertSnapshotSQL returns the SQL to insert a snapshot
func GetInsertSnapshotSQL() string {
	return insertSnapshotSQL
}
