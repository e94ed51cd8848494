package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coin-observer/src/logger"
	"coin-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if log == nil {
		log = logger.NewLogger(cfg, "Postgres")
	}
	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."ranking_snapshots"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) recreateTables() error {
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, d.table())); err != nil {
		return fmt.Errorf("failed to drop ranking_snapshots: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE %s (
			cycle_id TEXT,
			list_name TEXT,
			list_rank INTEGER,
			symbol TEXT,
			price DOUBLE PRECISION,
			change_5m DOUBLE PRECISION,
			change_24h DOUBLE PRECISION,
			momentum DOUBLE PRECISION,
			score DOUBLE PRECISION,
			is_hot BOOLEAN,
			is_stable BOOLEAN,
			policy TEXT,
			payload JSONB,
			created_at BIGINT,
			PRIMARY KEY (cycle_id, list_name, list_rank)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ranking_snapshots: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ranking_snapshots_created ON %s (created_at)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to index ranking_snapshots: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveRanking(cycleID, partition string, coins []*models.MCoinAnalytics, at time.Time) error {
	rows, err := buildRows(cycleID, partition, coins, at)
	if err != nil || len(rows) == 0 {
		return err
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (cycle_id, list_name, list_rank, symbol, price, change_5m, change_24h,
			momentum, score, is_hot, is_stable, policy, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, d.table()))
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

func (d *PostgresDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config.Storage.RetentionHours, time.Now())

	d.Logger.Debug("Cleaning up journal rows older than %d", cutoff)
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table()), cutoff); err != nil {
		return fmt.Errorf("cleanup ranking_snapshots: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
