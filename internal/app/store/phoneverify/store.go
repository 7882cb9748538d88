// Package phoneverify persists pending phone verification challenges. Codes
// are stored bcrypt-hashed; Mongo's TTL monitor reaps expired challenges.
package phoneverify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iliyababin/youthscc/internal/app/system/verifyflow"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultExpiry is how long a code stays redeemable.
	DefaultExpiry = 10 * time.Minute
	// BcryptCost for hashing codes. Codes are short-lived, so the low cost
	// keeps Verify cheap.
	BcryptCost = 10
	// MaxAttempts caps code guesses per challenge.
	MaxAttempts = 5
	// MaxResends caps how many codes one phone can request per window.
	MaxResends = 3
	// ResendWindow is the period MaxResends applies to.
	ResendWindow = 10 * time.Minute
)

// Challenge is one pending verification.
type Challenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Handle      string             `bson:"handle"`
	PhoneNumber string             `bson:"phone_number"`
	CodeHash    string             `bson:"code_hash"`
	ExpiresAt   time.Time          `bson:"expires_at"`
	CreatedAt   time.Time          `bson:"created_at"`
	Attempts    int                `bson:"attempts"`
}

// Store manages phone verification challenges. It implements
// verifyflow.Challenges and reports failures with that package's sentinel
// errors.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New builds a store. A non-positive expiry falls back to DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("phone_verifications"), expiry: expiry}
}

// Create replaces any pending challenge for phone with a fresh one and
// returns its opaque handle. Requests beyond the per-phone resend window
// fail with verifyflow.ErrResendTooSoon.
func (s *Store) Create(ctx context.Context, phone, code string) (string, error) {
	now := time.Now()

	windowStart := now.Add(-ResendWindow)
	recent, err := s.c.CountDocuments(ctx, bson.M{
		"phone_number": phone,
		"created_at":   bson.M{"$gt": windowStart},
	})
	if err != nil {
		return "", fmt.Errorf("count recent challenges: %w", err)
	}
	if recent >= MaxResends {
		return "", verifyflow.ErrResendTooSoon
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	// Old codes for this phone die when a new one is issued, but the
	// documents stay until the window passes so the resend count holds.
	_, _ = s.c.UpdateMany(ctx,
		bson.M{"phone_number": phone, "attempts": bson.M{"$lt": MaxAttempts}},
		bson.M{"$set": bson.M{"attempts": MaxAttempts}})

	ch := Challenge{
		ID:          primitive.NewObjectID(),
		Handle:      uuid.NewString(),
		PhoneNumber: phone,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.expiry),
		CreatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, ch); err != nil {
		return "", fmt.Errorf("insert challenge: %w", err)
	}
	return ch.Handle, nil
}

// Redeem checks code against the challenge identified by handle. On success
// the challenge is deleted (single use) and the verified phone returned.
func (s *Store) Redeem(ctx context.Context, handle, code string) (string, error) {
	var ch Challenge
	err := s.c.FindOne(ctx, bson.M{
		"handle":     handle,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&ch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", verifyflow.ErrNoChallenge
		}
		return "", err
	}

	if ch.Attempts >= MaxAttempts {
		return "", verifyflow.ErrTooManyAttempts
	}

	// Every guess counts, right or wrong. The attempt must be on record
	// before the code is checked, or the cap is advisory.
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": ch.ID}, bson.M{"$inc": bson.M{"attempts": 1}}); err != nil {
		return "", fmt.Errorf("count attempt: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		return "", verifyflow.ErrInvalidCode
	}

	// The delete is the commit point. Concurrent redeems of the same
	// challenge race to it and only the caller that removes the document
	// succeeds.
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": ch.ID})
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	if res.DeletedCount == 0 {
		return "", verifyflow.ErrNoChallenge
	}
	return ch.PhoneNumber, nil
}

// Cancel abandons the challenge identified by handle.
func (s *Store) Cancel(ctx context.Context, handle string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"handle": handle})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return verifyflow.ErrNoChallenge
	}
	return nil
}
