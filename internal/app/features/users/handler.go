// Package users serves the admin user management API: listing accounts,
// creating them on someone's behalf, changing roles, and deleting accounts
// together with their profile and group memberships.
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	groupstore "github.com/iliyababin/youthscc/internal/app/store/groups"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/htmlsanitize"
	"github.com/iliyababin/youthscc/internal/app/system/httpjson"
	"github.com/iliyababin/youthscc/internal/app/system/inputval"
	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Profiles *publicprofiles.Store
	Groups   *groupstore.Store
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

type userView struct {
	UID           string `json:"uid"`
	DisplayName   string `json:"displayName,omitempty"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Role          string `json:"role"`
	PhoneVerified bool   `json:"phoneVerified"`
}

func viewOf(u models.User) userView {
	return userView{
		UID:           u.ID.Hex(),
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Role:          u.Role,
		PhoneVerified: u.PhoneVerified,
	}
}

// ServeList handles GET /api/admin/users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Error("list users", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"users": views})
}

type createUserRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=200" label:"Name"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

// HandleCreate handles POST /api/admin/users: provisioning an account for a
// phone number ahead of the person's first sign-in.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}
	if res := inputval.Struct(req); res.HasErrors() {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, res.First())
		return
	}

	phone := normalize.Phone(req.PhoneNumber)
	if phone == "" {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Invalid phone number")
		return
	}

	role := normalize.Role(req.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Role must be admin, leader, or user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		DisplayName: htmlsanitize.Clean(req.DisplayName),
		PhoneNumber: phone,
		Role:        role,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrPhoneExists) {
			httpjson.WriteError(w, httpjson.CodeAlreadyExists, "Phone number already exists")
			return
		}
		h.Log.Error("create user", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	if u.DisplayName != "" {
		if err := h.Profiles.Upsert(ctx, u.ID.Hex(), u.DisplayName); err != nil {
			h.Log.Warn("upsert public profile", zap.Error(err))
		}
	}

	admin, _ := sysauth.CurrentUser(r)
	h.Audit.Record(r.Context(), auditlog.KindUserCreated, admin.ID, u.ID.Hex(),
		map[string]string{"role": u.Role})
	httpjson.Write(w, http.StatusCreated, viewOf(u))
}

// HandleDelete handles DELETE /api/admin/users/{uid}. Deleting your own
// account is refused so an admin cannot lock everyone out by accident.
// Removal cascades to the public profile and all group memberships.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	oid, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		httpjson.WriteError(w, httpjson.CodeNotFound, "User not found")
		return
	}

	admin, _ := sysauth.CurrentUser(r)
	if admin.ID == uid {
		httpjson.WriteError(w, httpjson.CodeFailedPrecondition, "You cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	n, err := h.Users.Delete(ctx, oid)
	if err != nil {
		h.Log.Error("delete user", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}
	if n == 0 {
		httpjson.WriteError(w, httpjson.CodeNotFound, "User not found")
		return
	}

	if err := h.Profiles.Delete(ctx, uid); err != nil {
		h.Log.Warn("delete public profile", zap.Error(err))
	}
	if err := h.Groups.RemoveUserFromAllGroups(ctx, oid); err != nil {
		h.Log.Warn("remove group memberships", zap.Error(err))
	}

	h.Audit.Record(r.Context(), auditlog.KindUserDeleted, admin.ID, uid, nil)
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// HandleSetRole handles POST /api/admin/users/{uid}/role. The change is
// effective on the target's next request because sessions refetch the user
// record.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	oid, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		httpjson.WriteError(w, httpjson.CodeNotFound, "User not found")
		return
	}

	var req setRoleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}
	role := normalize.Role(req.Role)
	if !models.ValidRole(role) {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Role must be admin, leader, or user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetRole(ctx, oid, role); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "User not found")
			return
		}
		h.Log.Error("set role", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	admin, _ := sysauth.CurrentUser(r)
	h.Audit.Record(r.Context(), auditlog.KindRoleChanged, admin.ID, uid,
		map[string]string{"role": role})
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}
