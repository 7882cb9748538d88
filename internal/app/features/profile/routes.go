package profile

import (
	"github.com/go-chi/chi/v5"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
)

// Routes returns the subrouter mounted under /api/profile.
func Routes(h *Handler, sm *sysauth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.Serve)
		pr.Put("/", h.HandleUpdate)
	})

	return r
}
