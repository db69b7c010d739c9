package kv

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	perr "archivist/internal/platform/errors"
)

// PutRowsFromJSON loads {"<row key>": {"<field>": value}} and writes every row
// nested objects are stored as JSON text rather than BSON so they stay human-editable
func (c *Client) PutRowsFromJSON(ctx context.Context, table string, r io.Reader, maxRetries int) (written, failed int, err error) {
	var rows map[string]map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, 0, perr.Wrap(err, perr.ErrorCodeJSON, "kv: import file is not a JSON object of rows")
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fields := make(map[string]any, len(rows[key]))
		for f, v := range rows[key] {
			if m, ok := v.(map[string]any); ok {
				b, err := json.Marshal(m)
				if err != nil {
					return written, failed, perr.Wrap(err, perr.ErrorCodeJSON, "kv: re-encode nested object")
				}
				fields[f] = b
				continue
			}
			fields[f] = v
		}
		if c.Put(ctx, table, key, fields, maxRetries) {
			written++
		} else {
			failed++
		}
	}
	c.log.Info().Str("table", table).Int("written", written).Int("failed", failed).Msg("kv: import finished")
	return written, failed, nil
}
