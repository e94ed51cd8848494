package storage

import (
	"database/sql"
	"fmt"
	"time"

	"coin-observer/src/logger"
	"coin-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if log == nil {
		log = logger.NewLogger(cfg, "SQLite")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Recreate Tables
	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("SQLite journal initialized (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) recreateTables() error {
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS ranking_snapshots"); err != nil {
		return fmt.Errorf("failed to drop ranking_snapshots: %w", err)
	}

	// SQLite types: INTEGER for int64 and bool, REAL for float64, TEXT for string
	query := `
		CREATE TABLE ranking_snapshots (
			cycle_id TEXT,
			list_name TEXT,
			list_rank INTEGER,
			symbol TEXT,
			price REAL,
			change_5m REAL,
			change_24h REAL,
			momentum REAL,
			score REAL,
			is_hot INTEGER,
			is_stable INTEGER,
			policy TEXT,
			payload TEXT,
			created_at INTEGER,
			PRIMARY KEY (cycle_id, list_name, list_rank)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ranking_snapshots: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX idx_ranking_snapshots_created ON ranking_snapshots (created_at)"); err != nil {
		return fmt.Errorf("failed to index ranking_snapshots: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveRanking(cycleID, partition string, coins []*models.MCoinAnalytics, at time.Time) error {
	rows, err := buildRows(cycleID, partition, coins, at)
	if err != nil || len(rows) == 0 {
		return err
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ranking_snapshots (cycle_id, list_name, list_rank, symbol, price, change_5m, change_24h,
			momentum, score, is_hot, is_stable, policy, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.args()...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config.Storage.RetentionHours, time.Now())

	res, err := d.DB.Exec("DELETE FROM ranking_snapshots WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleanup ranking_snapshots: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Debug("Removed %d journal rows older than %d", n, cutoff)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
