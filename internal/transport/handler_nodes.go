package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/model"
)

type addNodeRequest struct {
	ParentID string               `json:"parentId"`
	Node     *model.ComponentNode `json:"node"`
}

func handleAddNode(cat *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addNodeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Node == nil || req.Node.Type == "" {
			WriteValidationError(w, []model.FieldError{{Field: "node.type", Code: "REQUIRED", Message: "node type is required"}})
			return
		}
		if _, ok := cat.Get(req.Node.Type); !ok {
			WriteError(w, model.NewUnknownComponentError(req.Node.Type))
			return
		}
		s := storeFrom(r.Context())
		if req.ParentID == "" {
			req.ParentID, _ = s.RootID()
		}
		id, ok := s.AddNode(req.ParentID, req.Node)
		writeCommand(w, s, ok, id)
	}
}

func handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	writeCommand(w, s, s.RemoveNode(chi.URLParam(r, "nodeId")), "")
}

func handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ParentID string `json:"parentId"`
		Index    *int   `json:"index,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s := storeFrom(r.Context())
	id := chi.URLParam(r, "nodeId")
	writeCommand(w, s, s.MoveNode(id, body.ParentID, body.Index), id)
}

func handleUpdateProps(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if !decodeBody(w, r, &partial) {
		return
	}
	s := storeFrom(r.Context())
	id := chi.URLParam(r, "nodeId")
	writeCommand(w, s, s.UpdateProps(id, partial), id)
}

func handleUpdateBindings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]string
	if !decodeBody(w, r, &partial) {
		return
	}
	s := storeFrom(r.Context())
	id := chi.URLParam(r, "nodeId")
	writeCommand(w, s, s.UpdateBindings(id, partial), id)
}
