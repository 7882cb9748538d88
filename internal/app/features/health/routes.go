package health

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the health endpoint, mounted under
// /health.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
