// Package profile lets a signed-in user read and update their own account
// details. Display name changes propagate to the public profile projection.
package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/htmlsanitize"
	"github.com/iliyababin/youthscc/internal/app/system/httpjson"
	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Profiles *publicprofiles.Store
	Log      *zap.Logger
}

type profileView struct {
	UID           string `json:"uid"`
	DisplayName   string `json:"displayName,omitempty"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Role          string `json:"role"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// Serve handles GET /api/profile.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	su, _ := sysauth.CurrentUser(r)
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		httpjson.WriteError(w, httpjson.CodeUnauthenticated, "You must be signed in.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeUnauthenticated, "You must be signed in.")
			return
		}
		h.Log.Error("load profile", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	httpjson.Write(w, http.StatusOK, profileView{
		UID:           u.ID.Hex(),
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Role:          u.Role,
		PhoneVerified: u.PhoneVerified,
	})
}

// HandleUpdate handles PUT /api/profile. Only the display name is
// self-serviceable; contact details and role change through auth flows and
// admins respectively.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	su, _ := sysauth.CurrentUser(r)
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		httpjson.WriteError(w, httpjson.CodeUnauthenticated, "You must be signed in.")
		return
	}

	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	name := htmlsanitize.Clean(normalize.Name(req.DisplayName))
	if !normalize.IsFullName(name) {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Please enter your first and last name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.SetDisplayName(ctx, oid, name); err != nil {
		h.Log.Error("update display name", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}
	if err := h.Profiles.Upsert(ctx, su.ID, name); err != nil {
		h.Log.Warn("upsert public profile", zap.Error(err))
	}

	httpjson.Write(w, http.StatusOK, map[string]string{"displayName": name})
}
