// Package config provides configuration management for the accessclone CLI.
//
// Configuration is layered: built-in defaults, then an optional
// accessclone.yaml file, then ACCESSCLONE_ environment variables, then
// command-line flags.
package config

import "fmt"

// DatabaseConfig holds the connection settings for the target Postgres
// instance used by stub synthesis.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// DSN constructs a key=value PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, d.Database, sslmode)
	if d.Username != "" {
		dsn += fmt.Sprintf(" user=%s", d.Username)
	}
	if d.Password != "" {
		dsn += fmt.Sprintf(" password=%s", d.Password)
	}
	return dsn
}

// Config holds all CLI configuration options.
type Config struct {
	QueriesDir  string          `koanf:"queries_dir"`
	OutDir      string          `koanf:"out_dir"`
	Schema      string          `koanf:"schema"`
	ColumnTypes string          `koanf:"column_types"`
	Workers     int             `koanf:"workers"`
	Verbose     bool            `koanf:"verbose"`
	Database    *DatabaseConfig `koanf:"database"`
}
