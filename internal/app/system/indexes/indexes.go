// Package indexes creates the MongoDB indexes the stores rely on. Runs at
// startup; index creation is idempotent.
package indexes

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll creates every index the application needs.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	specs := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{
					// Sparse: email accounts have no phone, phone accounts no email.
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetUnique(true).SetSparse(true),
				},
				{
					Keys:    bson.D{{Key: "phone_number", Value: 1}},
					Options: options.Index().SetUnique(true).SetSparse(true),
				},
				{
					Keys: bson.D{{Key: "role", Value: 1}},
				},
			},
		},
		{
			collection: "bible_study_groups",
			models: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "name", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "members.user_id", Value: 1}},
				},
			},
		},
		{
			collection: "phone_verifications",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "handle", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "phone_number", Value: 1}},
				},
				{
					// Mongo reaps expired challenges on its own.
					Keys:    bson.D{{Key: "expires_at", Value: 1}},
					Options: options.Index().SetExpireAfterSeconds(0),
				},
			},
		},
		{
			collection: "audit_events",
			models: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "created_at", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
				},
			},
		},
	}

	for _, spec := range specs {
		if _, err := db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", spec.collection, err)
		}
		logger.Debug("indexes ensured", zap.String("collection", spec.collection))
	}

	logger.Info("database indexes ensured")
	return nil
}
