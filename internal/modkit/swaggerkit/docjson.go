package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"archivist/internal/core/version"
	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"
)

//go:embed openapi.json
var openapiDoc []byte

// docReader is swapped by tests
var docReader = func() []byte { return openapiDoc }

// defaultResponse is an error response added to operations that lack it
type defaultResponse struct {
	status  int
	code    perr.ErrorCode
	example string
	applies func(op map[string]any, path string) bool
}

var defaults = []defaultResponse{
	{
		status:  http.StatusBadRequest,
		code:    perr.ErrorCodeValidation,
		example: "limit: must be between 1 and 100",
		applies: func(op map[string]any, _ string) bool {
			params, _ := op["parameters"].([]any)
			return len(params) > 0
		},
	},
	{
		status:  http.StatusNotFound,
		code:    perr.ErrorCodeNotFound,
		example: "run ArchiveProcessor-2024-03-05-14:07:10 not found",
		applies: func(_ map[string]any, path string) bool { return strings.Contains(path, "{") },
	},
	{
		status:  http.StatusInternalServerError,
		code:    perr.ErrorCodePanic,
		example: "internal error",
		applies: func(map[string]any, string) bool { return true },
	},
}

func serveDoc(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.Unmarshal(docReader(), &doc); err != nil {
		logger.C(r.Context()).Error().Err(err).Msg("swagger: embedded document unreadable")
		http.Error(w, "openapi document unreadable", http.StatusInternalServerError)
		return
	}
	decorate(doc, version.Info("archivist-api").Version)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(doc)
}

// decorate sets the base url and build version and fills in error responses
func decorate(doc map[string]any, buildVersion string) {
	if _, ok := doc["servers"]; !ok {
		doc["servers"] = []any{map[string]any{"url": "/api/v1"}}
	}
	if info, ok := doc["info"].(map[string]any); ok && buildVersion != "" && buildVersion != "dev" {
		info["version"] = buildVersion
	}

	paths, _ := doc["paths"].(map[string]any)
	for path, node := range paths {
		ops, _ := node.(map[string]any)
		for _, o := range ops {
			op, ok := o.(map[string]any)
			if !ok {
				continue
			}
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				resps = map[string]any{}
				op["responses"] = resps
			}
			for _, d := range defaults {
				key := strconv.Itoa(d.status)
				if _, exists := resps[key]; exists || !d.applies(op, path) {
					continue
				}
				resps[key] = d.response()
			}
		}
	}
}

func (d defaultResponse) response() map[string]any {
	return map[string]any{
		"description": http.StatusText(d.status),
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": d.status,
					"status":      http.StatusText(d.status),
					"code":        int(d.code),
					"error":       d.example,
					"request_id":  "archivist/Xk2pQ-000001",
				},
			},
		},
	}
}
