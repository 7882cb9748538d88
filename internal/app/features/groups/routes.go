package groups

import (
	"github.com/go-chi/chi/v5"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/domain/models"
)

// Routes returns the subrouter mounted under /api/groups. Browsing and
// membership need a session; structural changes need admin or leader.
func Routes(h *Handler, sm *sysauth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGroup)
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)

		pr.Group(func(mr chi.Router) {
			mr.Use(sm.RequireRole(models.RoleAdmin, models.RoleLeader))

			mr.Post("/", h.HandleCreate)
			mr.Put("/{id}", h.HandleUpdate)
			mr.Delete("/{id}", h.HandleDelete)
		})
	})

	return r
}
