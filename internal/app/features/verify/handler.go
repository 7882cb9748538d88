// Package verify serves the phone sign-in flow. The pending challenge
// handle travels in a signed cookie, so the client never sees or replays
// raw challenge identifiers.
package verify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/iliyababin/youthscc/internal/app/store/phoneverify"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/authz"
	"github.com/iliyababin/youthscc/internal/app/system/httpjson"
	"github.com/iliyababin/youthscc/internal/app/system/metrics"
	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/app/system/ratelimit"
	"github.com/iliyababin/youthscc/internal/app/system/sms"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"github.com/iliyababin/youthscc/internal/app/system/verifyflow"
	"go.uber.org/zap"
)

const challengeCookie = "phone_challenge"

type Handler struct {
	flow     *verifyflow.Flow
	users    *userstore.Store
	sessions *sysauth.SessionManager
	limiter  *ratelimit.OTPLimiter
	audit    *auditlog.Logger
	log      *zap.Logger
	codec    *securecookie.SecureCookie
	expiry   time.Duration
	secure   bool
}

// NewHandler wires the phone verification flow. cookieKey signs the
// challenge cookie and must be at least 32 bytes.
func NewHandler(
	challenges *phoneverify.Store,
	users *userstore.Store,
	profiles *publicprofiles.Store,
	sessions *sysauth.SessionManager,
	sender sms.Sender,
	audit *auditlog.Logger,
	cookieKey []byte,
	expiry time.Duration,
	secure bool,
	logger *zap.Logger,
) *Handler {
	adapter := &usersAdapter{users: users, profiles: profiles}
	return &Handler{
		flow:     verifyflow.New(challenges, adapter, sender, logger),
		users:    users,
		sessions: sessions,
		limiter:  ratelimit.NewOTPLimiter(),
		audit:    audit,
		log:      logger,
		codec:    securecookie.New(cookieKey, nil),
		expiry:   expiry,
		secure:   secure,
	}
}

type stateResponse struct {
	State string `json:"state"`
}

type verifiedResponse struct {
	State       string            `json:"state"`
	User        any               `json:"user"`
	Permissions authz.Permissions `json:"permissions"`
}

// HandleStart handles POST /api/auth/phone/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	// Limit on the canonical phone so formatting variants of one number
	// share a bucket. Unparseable input falls back to the raw string.
	phoneKey := normalize.Phone(req.PhoneNumber)
	if phoneKey == "" {
		phoneKey = req.PhoneNumber
	}
	if !h.limiter.Check(r, phoneKey) {
		metrics.VerificationCodes.WithLabelValues("start", "rate_limited").Inc()
		httpjson.WriteError(w, httpjson.CodeTooManyRequests, "Too many attempts. Please try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	handle, next, err := h.flow.Start(ctx, req.PhoneNumber)
	if err != nil {
		h.writeFlowError(w, "start", err)
		return
	}

	h.setChallengeCookie(w, handle)
	metrics.VerificationCodes.WithLabelValues("start", "sent").Inc()
	httpjson.Write(w, http.StatusOK, stateResponse{State: string(next)})
}

// HandleVerify handles POST /api/auth/phone/verify. A correct code signs
// the user in and reports whether the name-input step is still needed.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	handle, ok := h.challengeHandle(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeFailedPrecondition, "No verification in progress")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.flow.Verify(ctx, handle, req.Code)
	if err != nil {
		h.writeFlowError(w, "verify", err)
		return
	}

	su := &sysauth.SessionUser{
		ID:          res.Account.ID,
		DisplayName: res.Account.DisplayName,
		PhoneNumber: res.Account.PhoneNumber,
		Role:        res.Account.Role,
	}
	if err := h.sessions.SignIn(w, r, su); err != nil {
		h.log.Error("establish session", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}
	h.clearChallengeCookie(w)
	h.limiter.ResetPhone(res.Account.PhoneNumber)

	metrics.VerificationCodes.WithLabelValues("verify", "ok").Inc()
	metrics.SignIns.WithLabelValues("phone", "ok").Inc()
	h.audit.Record(r.Context(), auditlog.KindPhoneVerified, su.ID, "", nil)

	httpjson.Write(w, http.StatusOK, verifiedResponse{
		State: string(res.Next),
		User: map[string]string{
			"uid":         su.ID,
			"displayName": su.DisplayName,
			"phoneNumber": su.PhoneNumber,
			"role":        su.Role,
		},
		Permissions: authz.PermissionsFor(su.Role),
	})
}

// HandleName handles POST /api/auth/phone/name. Requires the session
// established by HandleVerify.
func (h *Handler) HandleName(w http.ResponseWriter, r *http.Request) {
	su, ok := sysauth.CurrentUser(r)
	if !ok {
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	next, err := h.flow.CompleteName(ctx, su.ID, req.DisplayName)
	if err != nil {
		h.writeFlowError(w, "name", err)
		return
	}

	httpjson.Write(w, http.StatusOK, stateResponse{State: string(next)})
}

// HandleBack handles POST /api/auth/phone/back, abandoning any pending
// challenge and returning to phone entry.
func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	handle, _ := h.challengeHandle(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	next, err := h.flow.Back(ctx, handle)
	if err != nil {
		h.log.Warn("abandon challenge", zap.Error(err))
	}
	h.clearChallengeCookie(w)
	httpjson.Write(w, http.StatusOK, stateResponse{State: string(next)})
}

func (h *Handler) writeFlowError(w http.ResponseWriter, stage string, err error) {
	switch {
	case errors.Is(err, verifyflow.ErrInvalidPhone):
		metrics.VerificationCodes.WithLabelValues(stage, "invalid_phone").Inc()
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Invalid phone number")
	case errors.Is(err, verifyflow.ErrInvalidCode):
		metrics.VerificationCodes.WithLabelValues(stage, "invalid_code").Inc()
		httpjson.WriteError(w, httpjson.CodeInvalidCode, "Invalid verification code")
	case errors.Is(err, verifyflow.ErrNoChallenge):
		metrics.VerificationCodes.WithLabelValues(stage, "no_challenge").Inc()
		httpjson.WriteError(w, httpjson.CodeFailedPrecondition, "No verification in progress")
	case errors.Is(err, verifyflow.ErrTooManyAttempts), errors.Is(err, verifyflow.ErrResendTooSoon):
		metrics.VerificationCodes.WithLabelValues(stage, "rate_limited").Inc()
		httpjson.WriteError(w, httpjson.CodeTooManyRequests, "Too many attempts. Please try again later")
	case errors.Is(err, verifyflow.ErrInvalidName):
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, "Please enter your first and last name")
	default:
		h.log.Error("verification flow", zap.String("stage", stage), zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
	}
}

func (h *Handler) setChallengeCookie(w http.ResponseWriter, handle string) {
	encoded, err := h.codec.Encode(challengeCookie, handle)
	if err != nil {
		h.log.Error("encode challenge cookie", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     challengeCookie,
		Value:    encoded,
		Path:     "/api/auth/phone",
		MaxAge:   int(h.expiry.Seconds()),
		Secure:   h.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearChallengeCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     challengeCookie,
		Value:    "",
		Path:     "/api/auth/phone",
		MaxAge:   -1,
		Secure:   h.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) challengeHandle(r *http.Request) (string, bool) {
	c, err := r.Cookie(challengeCookie)
	if err != nil {
		return "", false
	}
	var handle string
	if err := h.codec.Decode(challengeCookie, c.Value, &handle); err != nil {
		return "", false
	}
	return handle, handle != ""
}
