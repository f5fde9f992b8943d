// Package database stores crawl runs and the reports they collected.
//
// Two stores implement Store:
//   - ReportDB keeps everything in a single SQLite file (modernc.org/sqlite,
//     no cgo). It is the default and lives in the XDG data directory.
//   - PGStore writes to PostgreSQL through a pgx connection pool, for
//     setups where several hosts crawl into one database.
//
// A run is saved together with its reports in one transaction. Reports are
// keyed by run and document link, so saving a run twice updates it in place.
package database
