// Package module defines the module contract and the bootstrap port registry
package module

import (
	phttp "archivist/internal/platform/net/http"
)

// Module is an API module mounted under its own prefix
type Module interface {
	Name() string
	Prefix() string
	MountRoutes(r phttp.Router)
	Ports() any
}
