package profile_test

import (
	"net/http/httptest"
	"testing"

	"github.com/iliyababin/youthscc/internal/app/features/profile"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*profile.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := &profile.Handler{
		Users:    userstore.New(db),
		Profiles: publicprofiles.New(db),
		Log:      zap.NewNop(),
	}
	return h, testutil.NewFixtures(t, db)
}

func TestServe(t *testing.T) {
	h, fx := setup(t)
	ctx := testutil.TestContext(t)
	u := fx.CreatePhoneUser(ctx, "Jane Doe", "+15551110001", "user")

	req := testutil.WithUser(httptest.NewRequest("GET", "/api/profile", nil), u)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		DisplayName   string `json:"displayName"`
		PhoneVerified bool   `json:"phoneVerified"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.DisplayName != "Jane Doe" || !resp.PhoneVerified {
		t.Errorf("unexpected profile %+v", resp)
	}
}

func TestHandleUpdate(t *testing.T) {
	h, fx := setup(t)
	ctx := testutil.TestContext(t)
	u := fx.CreatePhoneUser(ctx, "Jane Doe", "+15551110001", "user")

	req := testutil.NewJSONRequest(t, "PUT", "/api/profile", map[string]string{
		"displayName": "  Jane   Smith ",
	})
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, testutil.WithUser(req, u))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if got.DisplayName != "Jane Smith" {
		t.Errorf("expected normalized name stored, got %q", got.DisplayName)
	}

	p, _ := h.Profiles.GetByID(ctx, u.ID.Hex())
	if p == nil || p.DisplayName != "Jane Smith" {
		t.Errorf("public profile not updated: %+v", p)
	}
}

func TestHandleUpdate_RequiresFullName(t *testing.T) {
	h, fx := setup(t)
	ctx := testutil.TestContext(t)
	u := fx.CreatePhoneUser(ctx, "Jane Doe", "+15551110001", "user")

	req := testutil.NewJSONRequest(t, "PUT", "/api/profile", map[string]string{
		"displayName": "Jane",
	})
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, testutil.WithUser(req, u))

	if rec.Code != 400 {
		t.Errorf("expected 400 for single-word name, got %d", rec.Code)
	}
}
