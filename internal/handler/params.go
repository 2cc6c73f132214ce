package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/routetracker/internal/domain"
)

// pathID binds the int64 path parameter name, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeRequestError(w, "invalid format for parameter "+name+": "+err.Error())
		return 0, false
	}
	return id, true
}

// paginationParams binds the optional ?page= and ?limit= query parameters.
func paginationParams(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		writeRequestError(w, "invalid format for parameter page: "+err.Error())
		return domain.PaginationParams{}, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeRequestError(w, "invalid format for parameter limit: "+err.Error())
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, limit), true
}

// queryString binds an optional string query parameter.
func queryString(w http.ResponseWriter, r *http.Request, name string) (*string, bool) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeRequestError(w, "invalid format for parameter "+name+": "+err.Error())
		return nil, false
	}
	return v, true
}
