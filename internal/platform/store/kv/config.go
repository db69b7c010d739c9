package kv

import (
	"archivist/internal/platform/config"
)

// Tables names the pipeline's logical tables
type Tables struct {
	Main      string
	Harvest   string
	Config    string
	Processes string
}

// TableSpec pairs a table name with its version policy
type TableSpec struct {
	Name        string
	MaxVersions int
}

// Specs lists the tables in creation order; config keeps history, the rest only the latest value
func (t Tables) Specs() []TableSpec {
	return []TableSpec{
		{Name: t.Main, MaxVersions: 1},
		{Name: t.Harvest, MaxVersions: 1},
		{Name: t.Config, MaxVersions: 100},
		{Name: t.Processes, MaxVersions: 1},
	}
}

// Config is the store client configuration
type Config struct {
	Family     string
	MaxRetries int
	Tables     Tables
}

// FromConfig reads ARCHIVIST_KV_* settings
func FromConfig(cfg config.Conf) Config {
	kc := cfg.Prefix("ARCHIVIST_KV_")
	return Config{
		Family:     kc.MayString("FAMILY", DefaultFamily),
		MaxRetries: kc.MayInt("MAX_RETRIES", 5),
		Tables: Tables{
			Main:      kc.MayString("TABLE_MAIN", "main"),
			Harvest:   kc.MayString("TABLE_HARVEST", "harvest"),
			Config:    kc.MayString("TABLE_CONFIG", "config"),
			Processes: kc.MayString("TABLE_PROCESSES", "processes"),
		},
	}
}
