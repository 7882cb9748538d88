package verify

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/auth/phone.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/start", h.HandleStart)
	r.Post("/verify", h.HandleVerify)
	r.Post("/name", h.HandleName)
	r.Post("/back", h.HandleBack)
	return r
}
