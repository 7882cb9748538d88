package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures creates test data directly in the database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateEmailUser inserts a user with an email/password credential.
func (f *Fixtures) CreateEmailUser(ctx context.Context, displayName, email, password, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash test password: %v", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	f.upsertProfile(ctx, u)
	return u
}

// CreatePhoneUser inserts a user provisioned through phone sign-in.
func (f *Fixtures) CreatePhoneUser(ctx context.Context, displayName, phone, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:            primitive.NewObjectID(),
		DisplayName:   displayName,
		PhoneNumber:   phone,
		Role:          role,
		PhoneVerified: true,
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test phone user: %v", err)
	}
	f.upsertProfile(ctx, u)
	return u
}

// CreateAdmin inserts an admin with an email credential.
func (f *Fixtures) CreateAdmin(ctx context.Context, displayName, email string) models.User {
	f.t.Helper()
	return f.CreateEmailUser(ctx, displayName, email, "password123", models.RoleAdmin)
}

// CreateGroup inserts a bible study group with one meeting time and no
// members.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, leaders ...models.Leader) models.BibleStudyGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.BibleStudyGroup{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: "Test group description",
		Location:    "Room 101",
		Leaders:     leaders,
		MeetingTimes: []models.MeetingTime{
			{DayOfWeek: "Wednesday", Hour: 19, Minute: 0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("bible_study_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

func (f *Fixtures) upsertProfile(ctx context.Context, u models.User) {
	f.t.Helper()
	p := models.PublicProfile{UID: u.ID.Hex(), DisplayName: u.DisplayName}
	if _, err := f.db.Collection("public_profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test public profile: %v", err)
	}
}
