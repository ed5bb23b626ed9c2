package db

import "time"

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int

	// SlowQuery is the elapsed time above which a statement is logged as
	// slow. Zero disables slow-query reporting.
	SlowQuery time.Duration
	// LogQueries emits every statement at debug level. Meant for local
	// development only.
	LogQueries bool
}
