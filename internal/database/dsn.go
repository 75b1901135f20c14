package database

import (
	"time"

	"github.com/go-sql-driver/mysql"
)

// NormalizeDSN injects password (when non-empty) into dsn and forces the
// driver flags the repositories rely on:
//
//   - parseTime=true       DATE/TIMESTAMP columns scan into time.Time.
//   - loc=UTC              timestamps are stored and read as UTC.
//   - clientFoundRows=true UPDATE reports matched rather than changed rows.
//
// The password is kept out of YAML and resolved separately (see config).
func NormalizeDSN(dsn, password string) (string, error) {
	if dsn == "" {
		return "", nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
