package users

import (
	"github.com/go-chi/chi/v5"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/domain/models"
)

// Routes returns the subrouter mounted under /api/admin/users. Admin only.
func Routes(h *Handler, sm *sysauth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Delete("/{uid}", h.HandleDelete)
		pr.Post("/{uid}/role", h.HandleSetRole)
	})

	return r
}
