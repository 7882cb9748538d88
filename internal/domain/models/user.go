package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the users collection (PRIVATE - contains
// contact details). Accounts are created either by phone verification, by
// email/password signup, or by an admin on someone's behalf.
//
// NOTE:
//   - Role lives here and nowhere else. The public_profiles projection never
//     carries role, so a client-writable record can't be used to widen access.
//   - PhoneNumber and Email are both optional but at least one is always set.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"uid"`
	PhoneNumber   string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName   string             `bson:"display_name,omitempty" json:"displayName,omitempty"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	Role          string             `bson:"role" json:"role"` // admin | leader | user
	PhoneVerified bool               `bson:"phone_verified,omitempty" json:"phoneVerified,omitempty"`
	Status        string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
