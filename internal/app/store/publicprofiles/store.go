// Package publicprofiles persists the public projection of user accounts.
// Only non-sensitive fields live here; group leader names are resolved from
// this collection so the private users collection never leaves the backend.
package publicprofiles

import (
	"context"

	"github.com/iliyababin/youthscc/internal/app/system/normalize"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("public_profiles")}
}

// Upsert writes the profile for uid, creating it on first sign-in.
func (s *Store) Upsert(ctx context.Context, uid, displayName string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"display_name": normalize.Name(displayName)}},
		options.Update().SetUpsert(true))
	return err
}

// GetByID loads one profile. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, uid string) (*models.PublicProfile, error) {
	var p models.PublicProfile
	if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetMany loads profiles for the given user IDs, keyed by ID. Missing
// profiles are simply absent from the map.
func (s *Store) GetMany(ctx context.Context, uids []string) (map[string]models.PublicProfile, error) {
	out := make(map[string]models.PublicProfile, len(uids))
	if len(uids) == 0 {
		return out, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p models.PublicProfile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.UID] = p
	}
	return out, cur.Err()
}

// Delete removes the profile for uid.
func (s *Store) Delete(ctx context.Context, uid string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": uid})
	return err
}
