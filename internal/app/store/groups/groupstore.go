// Package groupstore persists bible study groups. Membership lives as an
// embedded array on the group document; Join and Leave use filtered updates
// so concurrent requests cannot duplicate or clobber entries.
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no group matches the given ID.
var ErrNotFound = errors.New("bible study group not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("bible_study_groups")}
}

// List returns all groups sorted by name.
func (s *Store) List(ctx context.Context) ([]models.BibleStudyGroup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.BibleStudyGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetByID loads one group.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BibleStudyGroup, error) {
	var g models.BibleStudyGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Create inserts a new group. The caller validates fields; the store only
// stamps identity and timestamps and guarantees members starts empty.
func (s *Store) Create(ctx context.Context, g models.BibleStudyGroup) (models.BibleStudyGroup, error) {
	g.ID = primitive.NewObjectID()
	g.Members = []models.Member{}
	if g.Leaders == nil {
		g.Leaders = []models.Leader{}
	}

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.BibleStudyGroup{}, err
	}
	return g, nil
}

// Update holds the editable fields of a group. Membership is never edited
// through Update; Join and Leave own the members array.
type Update struct {
	Name         string
	Description  string
	Location     string
	Leaders      []models.Leader
	MeetingTimes []models.MeetingTime
}

// Update rewrites the editable fields of a group.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if upd.Leaders == nil {
		upd.Leaders = []models.Leader{}
	}
	set := bson.M{
		"name":          upd.Name,
		"description":   upd.Description,
		"location":      upd.Location,
		"leaders":       upd.Leaders,
		"meeting_times": upd.MeetingTimes,
		"updated_at":    time.Now().UTC(),
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a group.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Join adds uid to the group's members. The filter excludes groups already
// containing uid, so the push is atomic and a user can never appear twice
// however many requests race. Returns whether the membership was added.
func (s *Store) Join(ctx context.Context, groupID, uid primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":             groupID,
			"members.user_id": bson.M{"$ne": uid},
		},
		bson.M{
			"$push": bson.M{"members": models.Member{UserID: uid, JoinedAt: time.Now().UTC()}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// Either the group does not exist or the user is already a member.
	if err := s.c.FindOne(ctx, bson.M{"_id": groupID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, ErrNotFound
		}
		return false, err
	}
	return false, nil
}

// Leave removes uid from the group's members with a single $pull, so two
// concurrent leaves (or a leave racing a join) never rewrite each other's
// view of the array. Returns whether a membership was removed.
func (s *Store) Leave(ctx context.Context, groupID, uid primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":             groupID,
			"members.user_id": uid,
		},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": uid}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// Either the group does not exist or the user was not a member.
	if err := s.c.FindOne(ctx, bson.M{"_id": groupID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, ErrNotFound
		}
		return false, err
	}
	return false, nil
}

// RemoveUserFromAllGroups pulls uid out of every group's members and leaders.
// Used when an account is deleted.
func (s *Store) RemoveUserFromAllGroups(ctx context.Context, uid primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{},
		bson.M{"$pull": bson.M{
			"members": bson.M{"user_id": uid},
			"leaders": bson.M{"user_id": uid},
		}})
	return err
}
