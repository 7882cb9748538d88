package verifyflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/iliyababin/youthscc/internal/app/system/verifyflow"
	"go.uber.org/zap"
)

// fakeChallenges is an in-memory Challenges implementation mirroring the
// store's contract: single active challenge per handle, attempt cap, and
// single-use redemption.
type fakeChallenges struct {
	next     int
	byHandle map[string]*fakeChallenge
}

type fakeChallenge struct {
	phone    string
	code     string
	attempts int
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{byHandle: make(map[string]*fakeChallenge)}
}

func (f *fakeChallenges) Create(_ context.Context, phone, code string) (string, error) {
	f.next++
	h := fmt.Sprintf("handle-%d", f.next)
	f.byHandle[h] = &fakeChallenge{phone: phone, code: code}
	return h, nil
}

func (f *fakeChallenges) Redeem(_ context.Context, handle, code string) (string, error) {
	c, ok := f.byHandle[handle]
	if !ok {
		return "", verifyflow.ErrNoChallenge
	}
	c.attempts++
	if c.attempts > 5 {
		delete(f.byHandle, handle)
		return "", verifyflow.ErrTooManyAttempts
	}
	if c.code != code {
		return "", verifyflow.ErrInvalidCode
	}
	delete(f.byHandle, handle)
	return c.phone, nil
}

func (f *fakeChallenges) Cancel(_ context.Context, handle string) error {
	if _, ok := f.byHandle[handle]; !ok {
		return verifyflow.ErrNoChallenge
	}
	delete(f.byHandle, handle)
	return nil
}

type fakeUsers struct {
	next    int
	byPhone map[string]*verifyflow.Account
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byPhone: make(map[string]*verifyflow.Account)}
}

func (f *fakeUsers) GetOrCreateByPhone(_ context.Context, phone string) (*verifyflow.Account, error) {
	if a, ok := f.byPhone[phone]; ok {
		return a, nil
	}
	f.next++
	a := &verifyflow.Account{
		ID:          fmt.Sprintf("user-%d", f.next),
		PhoneNumber: phone,
		Role:        "user",
	}
	f.byPhone[phone] = a
	return a, nil
}

func (f *fakeUsers) SetDisplayName(_ context.Context, userID, name string) error {
	for _, a := range f.byPhone {
		if a.ID == userID {
			a.DisplayName = name
			return nil
		}
	}
	return errors.New("user not found")
}

// captureSender records the last message instead of sending it.
type captureSender struct {
	phone string
	body  string
	fail  error
}

func (s *captureSender) Send(_ context.Context, phone, body string) error {
	if s.fail != nil {
		return s.fail
	}
	s.phone = phone
	s.body = body
	return nil
}

func newTestFlow() (*verifyflow.Flow, *fakeChallenges, *fakeUsers, *captureSender) {
	ch := newFakeChallenges()
	us := newFakeUsers()
	snd := &captureSender{}
	return verifyflow.New(ch, us, snd, zap.NewNop()), ch, us, snd
}

func codeFor(ch *fakeChallenges, handle string) string {
	return ch.byHandle[handle].code
}

func TestStart_InvalidPhone(t *testing.T) {
	flow, _, _, _ := newTestFlow()

	for _, phone := range []string{"", "555-1234", "+0123456789", "12345678901", "+1555abc4567"} {
		_, next, err := flow.Start(context.Background(), phone)
		if !errors.Is(err, verifyflow.ErrInvalidPhone) {
			t.Errorf("Start(%q): expected ErrInvalidPhone, got %v", phone, err)
		}
		if next != verifyflow.StatePhone {
			t.Errorf("Start(%q): expected to stay in phone state, got %q", phone, next)
		}
	}
}

func TestStart_SendsCodeAndAdvances(t *testing.T) {
	flow, ch, _, snd := newTestFlow()

	handle, next, err := flow.Start(context.Background(), "+1 (555) 123-4567")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if next != verifyflow.StatePhoneVerification {
		t.Errorf("expected phone-verification state, got %q", next)
	}
	if snd.phone != "+15551234567" {
		t.Errorf("expected SMS to normalized phone, got %q", snd.phone)
	}
	if len(codeFor(ch, handle)) != 6 {
		t.Errorf("expected 6-digit code, got %q", codeFor(ch, handle))
	}
}

func TestStart_SMSFailureCancelsChallenge(t *testing.T) {
	flow, ch, _, snd := newTestFlow()
	snd.fail = errors.New("gateway down")

	_, _, err := flow.Start(context.Background(), "+15551234567")
	if err == nil {
		t.Fatal("expected error when SMS fails")
	}
	if len(ch.byHandle) != 0 {
		t.Error("expected challenge to be cancelled after SMS failure")
	}
}

func TestVerify_WrongCode(t *testing.T) {
	flow, _, _, _ := newTestFlow()

	handle, _, err := flow.Start(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = flow.Verify(context.Background(), handle, "000000")
	if !errors.Is(err, verifyflow.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
}

func TestVerify_NewUserNeedsName(t *testing.T) {
	flow, ch, _, _ := newTestFlow()

	handle, _, _ := flow.Start(context.Background(), "+15551234567")
	res, err := flow.Verify(context.Background(), handle, codeFor(ch, handle))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Next != verifyflow.StateNameInput {
		t.Errorf("new user should be sent to name-input, got %q", res.Next)
	}
	if res.Account.Role != "user" {
		t.Errorf("new account should get default role user, got %q", res.Account.Role)
	}
}

func TestVerify_ExistingFullNameSkipsNameInput(t *testing.T) {
	flow, ch, us, _ := newTestFlow()
	us.byPhone["+15551234567"] = &verifyflow.Account{
		ID: "user-9", PhoneNumber: "+15551234567", DisplayName: "Jane Doe", Role: "user",
	}

	handle, _, _ := flow.Start(context.Background(), "+15551234567")
	res, err := flow.Verify(context.Background(), handle, codeFor(ch, handle))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Next != verifyflow.StateDone {
		t.Errorf("user with full name should finish immediately, got %q", res.Next)
	}
}

func TestVerify_CodeIsSingleUse(t *testing.T) {
	flow, ch, _, _ := newTestFlow()

	handle, _, _ := flow.Start(context.Background(), "+15551234567")
	code := codeFor(ch, handle)
	if _, err := flow.Verify(context.Background(), handle, code); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := flow.Verify(context.Background(), handle, code); !errors.Is(err, verifyflow.ErrNoChallenge) {
		t.Errorf("second Verify should fail with ErrNoChallenge, got %v", err)
	}
}

func TestCompleteName_RequiresFullName(t *testing.T) {
	flow, ch, _, _ := newTestFlow()

	handle, _, _ := flow.Start(context.Background(), "+15551234567")
	res, _ := flow.Verify(context.Background(), handle, codeFor(ch, handle))

	for _, name := range []string{"", "Jane", "   Jane   "} {
		next, err := flow.CompleteName(context.Background(), res.Account.ID, name)
		if !errors.Is(err, verifyflow.ErrInvalidName) {
			t.Errorf("CompleteName(%q): expected ErrInvalidName, got %v", name, err)
		}
		if next != verifyflow.StateNameInput {
			t.Errorf("CompleteName(%q): expected to stay in name-input, got %q", name, next)
		}
	}

	next, err := flow.CompleteName(context.Background(), res.Account.ID, "  Jane   Doe ")
	if err != nil {
		t.Fatalf("CompleteName: %v", err)
	}
	if next != verifyflow.StateDone {
		t.Errorf("expected done, got %q", next)
	}
}

func TestBack_CancelsChallenge(t *testing.T) {
	flow, ch, _, _ := newTestFlow()

	handle, _, _ := flow.Start(context.Background(), "+15551234567")
	code := codeFor(ch, handle)

	next, err := flow.Back(context.Background(), handle)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if next != verifyflow.StatePhone {
		t.Errorf("expected phone state, got %q", next)
	}
	if _, err := flow.Verify(context.Background(), handle, code); !errors.Is(err, verifyflow.ErrNoChallenge) {
		t.Errorf("old code should be dead after Back, got %v", err)
	}
}

func TestBack_NoChallengeIsFine(t *testing.T) {
	flow, _, _, _ := newTestFlow()
	next, err := flow.Back(context.Background(), "")
	if err != nil || next != verifyflow.StatePhone {
		t.Errorf("Back with no handle: got (%q, %v)", next, err)
	}
}
