package module

import (
	"archivist/internal/platform/config"
	"archivist/internal/platform/store/kv"
	"archivist/internal/services/ingest/service"
	"archivist/internal/services/ingest/sink"
)

// Options holds configuration for the ingest module
type Options struct {
	AcceptedTypes    []string
	MaxContentLength int64
	CHBatch          int
	Workers          int
	KV               kv.Config
}

// FromConfig reads ARCHIVIST_INGEST_* and ARCHIVIST_KV_*
func FromConfig(cfg config.Conf) Options {
	ic := cfg.Prefix("ARCHIVIST_INGEST_")
	return Options{
		AcceptedTypes:    ic.MayCSV("ACCEPTED_TYPES", []string{"response", "revisit"}),
		MaxContentLength: ic.MayInt64("MAX_CONTENT_LENGTH", 100000000),
		CHBatch:          ic.MayInt("CH_BATCH", sink.DefaultBatch),
		Workers:          ic.MayInt("WORKERS", service.DefaultWorkers),
		KV:               kv.FromConfig(cfg),
	}
}
