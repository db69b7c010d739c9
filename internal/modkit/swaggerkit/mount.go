// Package swaggerkit serves the OpenAPI document of the status API and the Swagger UI around it
package swaggerkit

import (
	"net/http"

	phttp "archivist/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

const docsPrefix = "/api/docs"

// Mount registers the UI under /api/docs; disabled deployments get nothing
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get(docsPrefix, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, docsPrefix+"/", http.StatusPermanentRedirect)
	})
	r.Get(docsPrefix+"/doc.json", serveDoc)
	r.Handle(docsPrefix+"/*", httpSwagger.Handler(
		httpSwagger.InstanceName("archivist"),
		httpSwagger.URL(docsPrefix+"/doc.json"),
		httpSwagger.DocExpansion("list"),
	))
}
