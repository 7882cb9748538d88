package verify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/iliyababin/youthscc/internal/app/features/verify"
	"github.com/iliyababin/youthscc/internal/app/store/phoneverify"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/indexes"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"github.com/iliyababin/youthscc/internal/testutil"
	"go.uber.org/zap"
)

// captureSender records outgoing messages so tests can read the code.
type captureSender struct {
	bodies []string
}

var codeRE = regexp.MustCompile(`\d{6}`)

func (s *captureSender) Send(_ context.Context, _, body string) error {
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	if len(s.bodies) == 0 {
		t.Fatal("no SMS was sent")
	}
	code := codeRE.FindString(s.bodies[len(s.bodies)-1])
	if code == "" {
		t.Fatalf("no code in SMS body %q", s.bodies[len(s.bodies)-1])
	}
	return code
}

type env struct {
	handler *verify.Handler
	sender  *captureSender
	users   *userstore.Store
	cookies []*http.Cookie
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	sm, err := sysauth.NewSessionManager(
		"test-session-key-must-be-32-chars-long", "test-session", "",
		time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	sender := &captureSender{}
	users := userstore.New(db)
	h := verify.NewHandler(
		phoneverify.New(db, 10*time.Minute),
		users,
		publicprofiles.New(db),
		sm,
		sender,
		auditlog.New(nil, zap.NewNop()),
		[]byte("another-32-byte-key-for-cookies!"),
		10*time.Minute,
		false,
		zap.NewNop(),
	)
	return &env{handler: h, sender: sender, users: users}
}

// do sends a request through the given handler func, carrying cookies
// forward like a browser would.
func (e *env) do(t *testing.T, fn http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, "POST", target, body)
	req.RemoteAddr = "10.0.0.7:1234"
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	for _, c := range rec.Result().Cookies() {
		e.cookies = append(e.cookies, c)
	}
	return rec
}

func TestPhoneSignIn_FullFlow(t *testing.T) {
	e := setup(t)

	rec := e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "+1 555 123 4567"})
	if rec.Code != 200 {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		State string `json:"state"`
	}
	testutil.DecodeJSON(t, rec, &state)
	if state.State != "phone-verification" {
		t.Errorf("expected phone-verification, got %q", state.State)
	}

	rec = e.do(t, e.handler.HandleVerify, "/api/auth/phone/verify",
		map[string]string{"code": e.sender.lastCode(t)})
	if rec.Code != 200 {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verified struct {
		State string `json:"state"`
		User  struct {
			UID  string `json:"uid"`
			Role string `json:"role"`
		} `json:"user"`
	}
	testutil.DecodeJSON(t, rec, &verified)
	if verified.State != "name-input" {
		t.Errorf("new user should need a name, got state %q", verified.State)
	}
	if verified.User.Role != "user" {
		t.Errorf("expected default role user, got %q", verified.User.Role)
	}

	// The name step runs on the session; inject the user like the session
	// middleware would.
	ctx := testutil.TestContext(t)
	u, err := e.users.GetByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("load created account: %v", err)
	}
	req := testutil.NewJSONRequest(t, "POST", "/api/auth/phone/name",
		map[string]string{"displayName": "Jane Doe"})
	rec = httptest.NewRecorder()
	e.handler.HandleName(rec, testutil.WithUser(req, *u))
	if rec.Code != 200 {
		t.Fatalf("name: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	testutil.DecodeJSON(t, rec, &state)
	if state.State != "done" {
		t.Errorf("expected done, got %q", state.State)
	}

	u, _ = e.users.GetByPhone(ctx, "+15551234567")
	if u.DisplayName != "Jane Doe" {
		t.Errorf("display name not stored, got %q", u.DisplayName)
	}
}

func TestStart_InvalidPhone(t *testing.T) {
	e := setup(t)

	rec := e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "555-1234"})
	if rec.Code != 400 {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestStart_RateLimitSharedAcrossFormats(t *testing.T) {
	e := setup(t)

	// Three formatting variants of the same number. Each challenge is
	// abandoned right away so the store's resend window stays clear and
	// only the per-phone limiter is in play.
	variants := []string{"+1 555 123 4567", "+1-555-123-4567", "+1 (555) 123-4567"}
	for _, v := range variants {
		rec := e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
			map[string]string{"phoneNumber": v})
		if rec.Code != 200 {
			t.Fatalf("start %q: expected 200, got %d: %s", v, rec.Code, rec.Body.String())
		}
		e.do(t, e.handler.HandleBack, "/api/auth/phone/back", nil)
		e.cookies = nil
	}

	rec := e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "+15551234567"})
	if rec.Code != 429 {
		t.Fatalf("expected 429 for a fourth send to the same phone, got %d", rec.Code)
	}
	if len(e.sender.bodies) != 3 {
		t.Errorf("expected 3 codes sent, got %d", len(e.sender.bodies))
	}
}

func TestVerify_WithoutChallenge(t *testing.T) {
	e := setup(t)

	rec := e.do(t, e.handler.HandleVerify, "/api/auth/phone/verify",
		map[string]string{"code": "123456"})
	if rec.Code != 412 {
		t.Errorf("expected 412 without a pending challenge, got %d", rec.Code)
	}
}

func TestVerify_WrongCode(t *testing.T) {
	e := setup(t)

	e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "+15551234567"})
	rec := e.do(t, e.handler.HandleVerify, "/api/auth/phone/verify",
		map[string]string{"code": "000000"})
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Error.Code != "invalid-code" {
		t.Errorf("expected invalid-code, got %q", resp.Error.Code)
	}
}

func TestBack_AbandonsChallenge(t *testing.T) {
	e := setup(t)

	e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "+15551234567"})
	code := e.sender.lastCode(t)

	rec := e.do(t, e.handler.HandleBack, "/api/auth/phone/back", nil)
	if rec.Code != 200 {
		t.Fatalf("back: expected 200, got %d", rec.Code)
	}
	var state struct {
		State string `json:"state"`
	}
	testutil.DecodeJSON(t, rec, &state)
	if state.State != "phone" {
		t.Errorf("expected phone, got %q", state.State)
	}

	// The original code is dead even if the cookie is replayed.
	rec = e.do(t, e.handler.HandleVerify, "/api/auth/phone/verify",
		map[string]string{"code": code})
	if rec.Code == 200 {
		t.Error("abandoned challenge must not verify")
	}
}

func TestVerify_ExistingUserSkipsName(t *testing.T) {
	e := setup(t)
	ctx := testutil.TestContext(t)

	seed := models.User{
		PhoneNumber:   "+15551234567",
		DisplayName:   "Jane Doe",
		Role:          "user",
		PhoneVerified: true,
	}
	if _, err := e.users.Create(ctx, seed); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	e.do(t, e.handler.HandleStart, "/api/auth/phone/start",
		map[string]string{"phoneNumber": "+15551234567"})
	rec := e.do(t, e.handler.HandleVerify, "/api/auth/phone/verify",
		map[string]string{"code": e.sender.lastCode(t)})
	if rec.Code != 200 {
		t.Fatalf("verify: expected 200, got %d", rec.Code)
	}
	var verified struct {
		State string `json:"state"`
	}
	testutil.DecodeJSON(t, rec, &verified)
	if verified.State != "done" {
		t.Errorf("existing user with full name should be done, got %q", verified.State)
	}
}
