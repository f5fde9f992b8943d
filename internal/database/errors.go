package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("crawl run not found")

	// ErrMissingDSN is returned by OpenPostgres for an empty connection string.
	ErrMissingDSN = errors.New("postgres connection string is empty")
)
