package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/studio/model"
)

func handleAddPage(w http.ResponseWriter, r *http.Request) {
	var page model.PageSchema
	if !decodeBody(w, r, &page) {
		return
	}
	s := storeFrom(r.Context())
	id, ok := s.AddPage(page)
	writeCommand(w, s, ok, id)
}

func handleRemovePage(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	writeCommand(w, s, s.RemovePage(chi.URLParam(r, "pageId")), "")
}

func handleAddVariable(w http.ResponseWriter, r *http.Request) {
	var v model.VariableDef
	if !decodeBody(w, r, &v) {
		return
	}
	if v.Name == "" {
		WriteValidationError(w, []model.FieldError{{Field: "name", Code: "REQUIRED", Message: "variable name is required"}})
		return
	}
	s := storeFrom(r.Context())
	writeCommand(w, s, s.AddVariable(v), v.ID)
}

func handleAddDataSource(w http.ResponseWriter, r *http.Request) {
	var ds model.DataSource
	if !decodeBody(w, r, &ds) {
		return
	}
	var details []model.FieldError
	if ds.Name == "" {
		details = append(details, model.FieldError{Field: "name", Code: "REQUIRED", Message: "data source name is required"})
	}
	if ds.Kind != model.DataSourceREST && ds.Kind != model.DataSourceStatic {
		details = append(details, model.FieldError{Field: "kind", Code: "INVALID", Message: "kind must be rest or static"})
	}
	if len(details) > 0 {
		WriteValidationError(w, details)
		return
	}
	s := storeFrom(r.Context())
	writeCommand(w, s, s.AddDataSource(ds), ds.ID)
}
