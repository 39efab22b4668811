package transport

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/studio/internal/store"
	"github.com/pitabwire/studio/model"
)

// commandResult is the response of every document command.
type commandResult struct {
	Applied bool   `json:"applied"`
	ID      string `json:"id,omitempty"`
	Version uint64 `json:"version"`
}

func writeCommand(w http.ResponseWriter, s *store.Store, applied bool, id string) {
	snap, _ := s.Snapshot()
	WriteJSON(w, http.StatusOK, commandResult{Applied: applied, ID: id, Version: snap.Version})
}

// decodeBody decodes a JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func handleListProjects(ws *store.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persisted, err := ws.ListProjects(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		seen := make(map[string]bool, len(persisted))
		ids := make([]string, 0, len(persisted))
		for _, id := range append(persisted, ws.Opened()...) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		WriteJSON(w, http.StatusOK, map[string]any{"projects": ids})
	}
}

func handleGetProject(w http.ResponseWriter, r *http.Request) {
	snap, ok := storeFrom(r.Context()).Snapshot()
	if !ok {
		WriteError(w, model.NewProjectNotOpenError(chi.URLParam(r, "projectId")))
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

func handlePatchProject(w http.ResponseWriter, r *http.Request) {
	var patch model.AppPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	s := storeFrom(r.Context())
	writeCommand(w, s, s.UpdateApp(patch), "")
}

func handleSave(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	if err := s.Save(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	writeCommand(w, s, true, "")
}

func handleUndo(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	writeCommand(w, s, s.Undo(), "")
}

func handleRedo(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	writeCommand(w, s, s.Redo(), "")
}

func handleSeed(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	writeCommand(w, s, s.SeedSample(), "")
}

func handleSelection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s := storeFrom(r.Context())
	s.SetSelection(body.IDs)
	writeCommand(w, s, true, "")
}

func handleCurrentPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageID string `json:"pageId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s := storeFrom(r.Context())
	writeCommand(w, s, s.SetCurrentPage(body.PageID), body.PageID)
}

func handleCanvasDark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dark bool `json:"dark"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s := storeFrom(r.Context())
	if err := s.SetCanvasDark(r.Context(), body.Dark); err != nil {
		WriteError(w, err)
		return
	}
	writeCommand(w, s, true, "")
}
