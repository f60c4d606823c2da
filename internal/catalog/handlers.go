package catalog

import (
	"net/http"

	"github.com/noah-isme/printquote/internal/common"
)

// Handler exposes the filament catalog to the storefront.
type Handler struct {
	Catalog *Catalog
}

// Filaments handles GET /api/filaments.
func (h Handler) Filaments(w http.ResponseWriter, _ *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeConfiguration, "catalog not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Catalog.List()})
}
