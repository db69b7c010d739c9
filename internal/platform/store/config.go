package store

import (
	"time"

	"archivist/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled   bool
	URL       string
	MaxConns  int32
	LogSQL    bool
	SlowQuery time.Duration

	// Guard/boot knobs:
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled    bool
	URL        string
	LogSQL     bool
	ClientName string
	ClientTag  string
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* for a process role
// a backend is enabled when its DBURL is set
func FromConfig(root config.Conf, role string) Config {
	pgc := root.Prefix("SERVICE_PGSQL_")
	chc := root.Prefix("SERVICE_CLICKHOUSE_")
	pgURL := pgc.MayString("DBURL", "")
	chURL := chc.MayString("DBURL", "")
	return Config{
		AppName: role,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgc.MayInt("MAX_CONNS", 4)),
			SlowQuery:      pgc.MayDuration("SLOW_QUERY", 500*time.Millisecond),
			LogSQL:         pgc.MayBool("LOG_SQL", false),
			ConnectRetries: pgc.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgc.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			LogSQL:     chc.MayBool("LOG_SQL", false),
			ClientName: "archivist",
			ClientTag:  role,
		},
	}
}
