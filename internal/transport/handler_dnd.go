package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/internal/dnd"
	"github.com/pitabwire/studio/model"
)

func handleDragEnd(resolver *dnd.Resolver, cat *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev dnd.DragEnd
		if !decodeBody(w, r, &ev) {
			return
		}
		if ev.Payload.Type != "" && ev.Payload.MoveID == "" {
			if _, ok := cat.Get(ev.Payload.Type); !ok {
				WriteError(w, model.NewUnknownComponentError(ev.Payload.Type))
				return
			}
		}
		WriteJSON(w, http.StatusOK, resolver.Resolve(storeFrom(r.Context()), ev))
	}
}

func handlePaletteClick(resolver *dnd.Resolver, cat *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeType := chi.URLParam(r, "type")
		if _, ok := cat.Get(nodeType); !ok {
			WriteError(w, model.NewUnknownComponentError(nodeType))
			return
		}
		WriteJSON(w, http.StatusOK, resolver.Click(storeFrom(r.Context()), nodeType))
	}
}
