// Package domain holds DTOs for the run status API
package domain

// RunsQuery filters the run listing
type RunsQuery struct {
	Prefix string `json:"prefix,omitempty" validate:"omitempty,max=200,printascii" example:"ArchiveProcessor-2024-03"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=running finished failed" example:"finished"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`
}

// VersionsQuery selects how many cell versions to return
type VersionsQuery struct {
	N int `json:"n,omitempty" validate:"omitempty,min=1,max=100" example:"10"`
}

// Run is one processing run as stored in the processes table
type Run struct {
	ID               string   `json:"id"                example:"ArchiveProcessor-2024-03-05-14:07:10"`
	Status           string   `json:"operation_status"  example:"finished"`
	TStarted         int64    `json:"t_started"         example:"1709647630000"`
	TFinished        int64    `json:"t_finished,omitempty" example:"1709647690000"`
	CmdArgs          string   `json:"cmd_args"`
	ApplicationID    string   `json:"application_id"`
	RecordsProcessed int64    `json:"records_processed" example:"11"`
	RecordsFailed    int64    `json:"records_failed"    example:"0"`
	Harvests         []string `json:"harvests"`
}

// Harvest is one registered harvest
type Harvest struct {
	ID   string `json:"id"   example:"Webarchiv-Serial"`
	Type string `json:"type" example:"Webarchiv"`
	Date string `json:"date" example:"20240105"`
}

// Record is a stored capture with its decoded fields
type Record struct {
	Key     string         `json:"key"`
	Revisit bool           `json:"revisit"`
	Fields  map[string]any `json:"fields"`
}

// ConfigVersion is one stored version of a config cell, newest first
type ConfigVersion struct {
	Version int `json:"version" example:"0"`
	Value   any `json:"value"`
}
