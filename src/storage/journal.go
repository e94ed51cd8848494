package storage

import (
	"fmt"

	"coin-observer/src/helpers"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

// NewJournal builds and initializes the backend named by Storage.DBType.
// "none" (or empty) returns a nil journal and no error.
func NewJournal(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	var (
		db  interfaces.IDatabase
		err error
	)

	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "sqlite":
		db, err = NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		db, err = NewPostgresDB(cfg, log)
	default:
		return nil, &helpers.ConfigurationError{ObserverError: helpers.ObserverError{
			Message: fmt.Sprintf("unknown storage type %q", cfg.Storage.DBType),
		}}
	}
	if err != nil {
		return nil, &helpers.DatabaseError{ObserverError: helpers.ObserverError{Message: "create journal", Cause: err}}
	}

	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, &helpers.DatabaseError{ObserverError: helpers.ObserverError{Message: "initialize journal", Cause: err}}
	}
	return db, nil
}
