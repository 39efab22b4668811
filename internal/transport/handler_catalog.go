package transport

import (
	"net/http"

	"github.com/pitabwire/studio/internal/catalog"
)

type catalogResponse struct {
	Items      []catalog.Item `json:"items"`
	Categories []string       `json:"categories"`
	Checksum   string         `json:"checksum,omitempty"`
	Source     string         `json:"source"`
}

func handleCatalog(cat *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := cat.Items()
		if category := r.URL.Query().Get("category"); category != "" {
			items = cat.InCategory(category)
		}
		WriteJSON(w, http.StatusOK, catalogResponse{
			Items:      items,
			Categories: cat.Categories(),
			Checksum:   cat.Checksum(),
			Source:     cat.Source(),
		})
	}
}
