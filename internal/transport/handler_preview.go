package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/internal/render"
	"github.com/pitabwire/studio/internal/session"
	"github.com/pitabwire/studio/model"
)

func previewSession(sessions *session.Manager, r *http.Request) *session.Session {
	return sessions.Attach(chi.URLParam(r, "projectId"), storeFrom(r.Context()))
}

func handlePreview(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := previewSession(sessions, r).Render(r.Context())
		if err != nil {
			writePreviewError(w, r, err)
			return
		}
		WriteHTML(w, http.StatusOK, out)
	}
}

type previewState struct {
	PageID string         `json:"pageId"`
	Dark   bool           `json:"dark"`
	Vars   map[string]any `json:"vars"`
	Toasts []model.Toast  `json:"toasts"`
}

func handlePreviewEvent(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev render.Event
		if !decodeBody(w, r, &ev) {
			return
		}
		if ev.NodeID == "" || ev.Action == "" {
			WriteValidationError(w, []model.FieldError{{Field: "nodeId", Code: "REQUIRED", Message: "nodeId and action are required"}})
			return
		}
		sess := previewSession(sessions, r)
		if err := sess.Dispatch(r.Context(), ev); err != nil {
			writePreviewError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, previewState{
			PageID: sess.PageID(),
			Dark:   sess.Dark(),
			Vars:   sess.Vars(),
			Toasts: sess.Toasts(),
		})
	}
}

func handlePreviewToasts(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toasts := previewSession(sessions, r).Toasts()
		if toasts == nil {
			toasts = []model.Toast{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"toasts": toasts})
	}
}

func writePreviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, render.ErrUnknownNode):
		WriteNotFound(w, err.Error())
	case errors.Is(err, render.ErrUnsupportedAction):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, session.ErrNotLoaded):
		WriteError(w, model.NewProjectNotOpenError(chi.URLParam(r, "projectId")))
	default:
		observability.RequestLogger(r.Context(), zap.NewNop()).Error("preview failed", zap.Error(err))
		WriteError(w, model.NewInternalError())
	}
}
