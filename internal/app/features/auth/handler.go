// Package auth serves email/password sign-up and sign-in. Phone sign-in
// lives in the verify feature; both converge on the same session.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/authz"
	"github.com/iliyababin/youthscc/internal/app/system/htmlsanitize"
	"github.com/iliyababin/youthscc/internal/app/system/httpjson"
	"github.com/iliyababin/youthscc/internal/app/system/metrics"
	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/app/system/ratelimit"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Handler struct {
	Users    *userstore.Store
	Profiles *publicprofiles.Store
	Sessions *sysauth.SessionManager
	Limiter  *ratelimit.LoginLimiter
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type sessionResponse struct {
	User        userView          `json:"user"`
	Permissions authz.Permissions `json:"permissions"`
}

type userView struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Role        string `json:"role"`
}

func viewOf(su *sysauth.SessionUser) userView {
	return userView{
		UID:         su.ID,
		DisplayName: su.DisplayName,
		Email:       su.Email,
		PhoneNumber: su.PhoneNumber,
		Role:        su.Role,
	}
}

// HandleSignup handles POST /api/auth/signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	email := normalize.Email(req.Email)
	if email == "" {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Password should be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        email,
		DisplayName:  htmlsanitize.Clean(normalize.Name(req.DisplayName)),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrEmailExists) {
			metrics.SignIns.WithLabelValues("password", "duplicate").Inc()
			httpjson.WriteError(w, httpjson.CodeAlreadyExists, "An account with this email already exists")
			return
		}
		h.Log.Error("create account", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	if u.DisplayName != "" {
		if err := h.Profiles.Upsert(ctx, u.ID.Hex(), u.DisplayName); err != nil {
			h.Log.Warn("upsert public profile", zap.Error(err))
		}
	}

	su := &sysauth.SessionUser{
		ID:          u.ID.Hex(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
	}
	if err := h.Sessions.SignIn(w, r, su); err != nil {
		h.Log.Error("establish session", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	metrics.SignIns.WithLabelValues("password", "signup").Inc()
	h.Audit.Record(r.Context(), auditlog.KindSignUp, su.ID, "", map[string]string{"method": "password"})
	httpjson.Write(w, http.StatusCreated, sessionResponse{
		User:        viewOf(su),
		Permissions: authz.PermissionsFor(su.Role),
	})
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	email := normalize.Email(req.Email)
	if email == "" {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Invalid email address")
		return
	}

	if ok, msg := h.Limiter.Check(r, email); !ok {
		metrics.SignIns.WithLabelValues("password", "rate_limited").Inc()
		httpjson.WriteError(w, httpjson.CodeTooManyRequests, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			metrics.SignIns.WithLabelValues("password", "no_account").Inc()
			httpjson.WriteError(w, httpjson.CodeNotFound, "No account found with this email")
			return
		}
		h.Log.Error("load account", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		metrics.SignIns.WithLabelValues("password", "bad_password").Inc()
		httpjson.WriteError(w, httpjson.CodeUnauthenticated, "Incorrect password")
		return
	}

	h.Limiter.ResetEmail(email)

	su := &sysauth.SessionUser{
		ID:          u.ID.Hex(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
	if err := h.Sessions.SignIn(w, r, su); err != nil {
		h.Log.Error("establish session", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	metrics.SignIns.WithLabelValues("password", "ok").Inc()
	h.Audit.Record(r.Context(), auditlog.KindSignIn, su.ID, "", map[string]string{"method": "password"})
	httpjson.Write(w, http.StatusOK, sessionResponse{
		User:        viewOf(su),
		Permissions: authz.PermissionsFor(su.Role),
	})
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if su, ok := sysauth.CurrentUser(r); ok {
		h.Audit.Record(r.Context(), auditlog.KindSignOut, su.ID, "", nil)
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("clear session", zap.Error(err))
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe handles GET /api/auth/me. Returns the current user and their
// capabilities; 401 when signed out.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	su, ok := sysauth.CurrentUser(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeUnauthenticated, "You must be signed in.")
		return
	}
	httpjson.Write(w, http.StatusOK, sessionResponse{
		User:        viewOf(su),
		Permissions: authz.PermissionsFor(su.Role),
	})
}
