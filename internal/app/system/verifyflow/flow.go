// Package verifyflow drives phone sign-in as a small state machine:
//
//	phone -> phone-verification -> name-input -> done
//
// The caller (the HTTP layer) holds only an opaque challenge handle between
// steps; codes, attempts, and expiry live in the challenge store. A user
// whose display name is already a full name skips the name-input state.
package verifyflow

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/app/system/sms"
	"go.uber.org/zap"
)

// State identifies a step of the sign-in flow. Values are returned to
// clients verbatim.
type State string

const (
	StatePhone             State = "phone"
	StatePhoneVerification State = "phone-verification"
	StateNameInput         State = "name-input"
	StateDone              State = "done"
)

// Flow errors. The HTTP layer maps these to API error codes.
var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrNoChallenge     = errors.New("no active verification challenge")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrResendTooSoon   = errors.New("a code was sent recently")
	ErrInvalidName     = errors.New("a first and last name is required")
)

// Challenges stores pending verification codes keyed by opaque handle.
// Implementations hash the code and enforce expiry, attempt caps, and the
// resend window; they surface ErrNoChallenge, ErrInvalidCode,
// ErrTooManyAttempts, and ErrResendTooSoon from this package.
type Challenges interface {
	Create(ctx context.Context, phone, code string) (handle string, err error)
	Redeem(ctx context.Context, handle, code string) (phone string, err error)
	Cancel(ctx context.Context, handle string) error
}

// Account is the slice of the user record the flow needs.
type Account struct {
	ID          string
	PhoneNumber string
	DisplayName string
	Role        string
}

// Users resolves verified phone numbers to accounts. GetOrCreateByPhone
// provisions a new account (with the default role) on first sign-in and
// marks the phone verified either way.
type Users interface {
	GetOrCreateByPhone(ctx context.Context, phone string) (*Account, error)
	SetDisplayName(ctx context.Context, userID, name string) error
}

// Flow wires the challenge store, user store, and SMS delivery together.
type Flow struct {
	challenges Challenges
	users      Users
	sender     sms.Sender
	log        *zap.Logger
}

func New(challenges Challenges, users Users, sender sms.Sender, logger *zap.Logger) *Flow {
	return &Flow{challenges: challenges, users: users, sender: sender, log: logger}
}

// Start validates the phone number, issues a challenge, and texts the code.
// The returned handle identifies the challenge in Verify and Back.
func (f *Flow) Start(ctx context.Context, rawPhone string) (handle string, next State, err error) {
	phone := normalize.Phone(rawPhone)
	if phone == "" {
		return "", StatePhone, ErrInvalidPhone
	}

	code, err := generateCode()
	if err != nil {
		return "", StatePhone, fmt.Errorf("generate verification code: %w", err)
	}

	handle, err = f.challenges.Create(ctx, phone, code)
	if err != nil {
		return "", StatePhone, err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	if err := f.sender.Send(ctx, phone, body); err != nil {
		// The challenge is unusable if the code never arrives.
		_ = f.challenges.Cancel(ctx, handle)
		f.log.Error("sms delivery failed", zap.Error(err))
		return "", StatePhone, err
	}

	f.log.Info("verification code sent", zap.String("phone", phone))
	return handle, StatePhoneVerification, nil
}

// Result is the outcome of a successful Verify.
type Result struct {
	Account *Account
	Next    State
}

// Verify checks the submitted code against the challenge. On success the
// account is looked up or created and the next state depends on whether the
// account already has a full display name.
func (f *Flow) Verify(ctx context.Context, handle, code string) (*Result, error) {
	phone, err := f.challenges.Redeem(ctx, handle, code)
	if err != nil {
		return nil, err
	}

	acct, err := f.users.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	next := StateDone
	if !normalize.IsFullName(acct.DisplayName) {
		next = StateNameInput
	}
	f.log.Info("phone verified",
		zap.String("user_id", acct.ID),
		zap.String("next", string(next)))
	return &Result{Account: acct, Next: next}, nil
}

// CompleteName records the user's display name and finishes the flow. The
// name must contain at least a first and last name.
func (f *Flow) CompleteName(ctx context.Context, userID, rawName string) (State, error) {
	name := normalize.Name(rawName)
	if !normalize.IsFullName(name) {
		return StateNameInput, ErrInvalidName
	}
	if err := f.users.SetDisplayName(ctx, userID, name); err != nil {
		return StateNameInput, err
	}
	return StateDone, nil
}

// Back abandons the pending challenge and returns the flow to the phone
// entry state. The old code can no longer be redeemed.
func (f *Flow) Back(ctx context.Context, handle string) (State, error) {
	if handle != "" {
		if err := f.challenges.Cancel(ctx, handle); err != nil && !errors.Is(err, ErrNoChallenge) {
			return StatePhoneVerification, err
		}
	}
	return StatePhone, nil
}

// generateCode returns a 6-digit code with uniform distribution.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
