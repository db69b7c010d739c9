package status

import (
	"context"
	"time"

	"archivist/internal/platform/logger"
)

// ProcessRunsDDL creates the ClickHouse mirror of terminal run snapshots
const ProcessRunsDDL = `CREATE TABLE IF NOT EXISTS process_runs (
	id String,
	t_started DateTime64(3),
	t_finished DateTime64(3),
	cmd_args String,
	application_id UUID,
	operation_status LowCardinality(String),
	records_processed Int64,
	records_failed Int64,
	harvests Array(String)
) ENGINE = ReplacingMergeTree
ORDER BY id`

// mirror writes the terminal snapshot to ClickHouse; failures are logged only
func (t *Tracker) mirror(ctx context.Context, r Run) {
	if t.ch == nil {
		return
	}
	log := logger.C(ctx).With().Str("component", "status").Str("run", r.ID).Logger()
	if err := t.ch.Exec(ctx, ProcessRunsDDL); err != nil {
		log.Warn().Err(err).Msg("process_runs table not ensured")
		return
	}
	row := []any{
		r.ID,
		time.UnixMilli(r.TStarted).UTC(),
		time.UnixMilli(r.TFinished).UTC(),
		r.CmdArgs,
		r.ApplicationID,
		r.Status,
		r.RecordsProcessed,
		r.RecordsFailed,
		r.Harvests,
	}
	if err := t.ch.Insert(ctx, "process_runs", [][]any{row}); err != nil {
		log.Warn().Err(err).Msg("run not mirrored to clickhouse")
	}
}
