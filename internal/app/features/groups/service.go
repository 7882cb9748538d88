package groups

import (
	"context"
	"time"

	groupstore "github.com/iliyababin/youthscc/internal/app/store/groups"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	"github.com/iliyababin/youthscc/internal/app/system/metrics"
	"github.com/iliyababin/youthscc/internal/app/system/optimistic"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// listTTL bounds how stale the cached group list may get when no mutation
// invalidates it.
const listTTL = 30 * time.Second

// Service wraps the group store with an optimistically updated list cache.
// Reads hit the cache; every mutation patches the cached list immediately,
// then writes through to Mongo, rolling the patch back if the write fails.
type Service struct {
	store    *groupstore.Store
	profiles *publicprofiles.Store
	cache    *optimistic.Cache[[]models.BibleStudyGroup]
	log      *zap.Logger
}

func NewService(store *groupstore.Store, profiles *publicprofiles.Store, logger *zap.Logger) *Service {
	s := &Service{store: store, profiles: profiles, log: logger}
	s.cache = optimistic.New(store.List, listTTL)
	return s
}

// List returns all groups sorted by name.
func (s *Service) List(ctx context.Context) ([]models.BibleStudyGroup, error) {
	return s.cache.Get(ctx)
}

// Get returns one group. Served from the cached list when possible.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.BibleStudyGroup, error) {
	groups, err := s.cache.Get(ctx)
	if err == nil {
		for i := range groups {
			if groups[i].ID == id {
				g := groups[i]
				return &g, nil
			}
		}
	}
	return s.store.GetByID(ctx, id)
}

// Create inserts a group and splices it into the cached list.
func (s *Service) Create(ctx context.Context, g models.BibleStudyGroup) (models.BibleStudyGroup, error) {
	var created models.BibleStudyGroup
	err := s.cache.Mutate(ctx,
		func(list []models.BibleStudyGroup) []models.BibleStudyGroup {
			out := make([]models.BibleStudyGroup, 0, len(list)+1)
			out = append(out, list...)
			return append(out, g)
		},
		func(ctx context.Context) error {
			var err error
			created, err = s.store.Create(ctx, g)
			return err
		})
	if err != nil {
		metrics.GroupMutations.WithLabelValues("create", "error").Inc()
		return models.BibleStudyGroup{}, err
	}
	metrics.GroupMutations.WithLabelValues("create", "ok").Inc()
	return created, nil
}

// Update rewrites a group's editable fields.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, upd groupstore.Update) error {
	err := s.cache.Mutate(ctx,
		func(list []models.BibleStudyGroup) []models.BibleStudyGroup {
			out := make([]models.BibleStudyGroup, len(list))
			copy(out, list)
			for i := range out {
				if out[i].ID == id {
					out[i].Name = upd.Name
					out[i].Description = upd.Description
					out[i].Location = upd.Location
					out[i].Leaders = upd.Leaders
					out[i].MeetingTimes = upd.MeetingTimes
				}
			}
			return out
		},
		func(ctx context.Context) error {
			return s.store.Update(ctx, id, upd)
		})
	if err != nil {
		metrics.GroupMutations.WithLabelValues("update", "error").Inc()
		return err
	}
	metrics.GroupMutations.WithLabelValues("update", "ok").Inc()
	return nil
}

// Delete removes a group.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.cache.Mutate(ctx,
		func(list []models.BibleStudyGroup) []models.BibleStudyGroup {
			out := make([]models.BibleStudyGroup, 0, len(list))
			for _, g := range list {
				if g.ID != id {
					out = append(out, g)
				}
			}
			return out
		},
		func(ctx context.Context) error {
			return s.store.Delete(ctx, id)
		})
	if err != nil {
		metrics.GroupMutations.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.GroupMutations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Join adds uid to the group. Reports whether a membership was added; a
// repeat join is a no-op, not an error.
func (s *Service) Join(ctx context.Context, groupID, uid primitive.ObjectID) (bool, error) {
	var joined bool
	err := s.cache.Mutate(ctx,
		func(list []models.BibleStudyGroup) []models.BibleStudyGroup {
			out := make([]models.BibleStudyGroup, len(list))
			copy(out, list)
			for i := range out {
				if out[i].ID == groupID && !out[i].HasMember(uid) {
					members := make([]models.Member, 0, len(out[i].Members)+1)
					members = append(members, out[i].Members...)
					out[i].Members = append(members, models.Member{UserID: uid, JoinedAt: time.Now().UTC()})
				}
			}
			return out
		},
		func(ctx context.Context) error {
			var err error
			joined, err = s.store.Join(ctx, groupID, uid)
			return err
		})
	if err != nil {
		metrics.GroupMutations.WithLabelValues("join", "error").Inc()
		return false, err
	}
	metrics.GroupMutations.WithLabelValues("join", "ok").Inc()
	return joined, nil
}

// Leave removes uid from the group. Reports whether a membership was
// removed.
func (s *Service) Leave(ctx context.Context, groupID, uid primitive.ObjectID) (bool, error) {
	var removed bool
	err := s.cache.Mutate(ctx,
		func(list []models.BibleStudyGroup) []models.BibleStudyGroup {
			out := make([]models.BibleStudyGroup, len(list))
			copy(out, list)
			for i := range out {
				if out[i].ID != groupID {
					continue
				}
				members := make([]models.Member, 0, len(out[i].Members))
				for _, m := range out[i].Members {
					if m.UserID != uid {
						members = append(members, m)
					}
				}
				out[i].Members = members
			}
			return out
		},
		func(ctx context.Context) error {
			var err error
			removed, err = s.store.Leave(ctx, groupID, uid)
			return err
		})
	if err != nil {
		metrics.GroupMutations.WithLabelValues("leave", "error").Inc()
		return false, err
	}
	metrics.GroupMutations.WithLabelValues("leave", "ok").Inc()
	return removed, nil
}

// ResolveLeaders turns user IDs into leader entries with current display
// names from public_profiles. Unknown IDs resolve with an empty name rather
// than failing the whole mutation.
func (s *Service) ResolveLeaders(ctx context.Context, uids []string) ([]models.Leader, error) {
	profiles, err := s.profiles.GetMany(ctx, uids)
	if err != nil {
		return nil, err
	}

	leaders := make([]models.Leader, 0, len(uids))
	for _, uid := range uids {
		oid, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			continue
		}
		name := ""
		if p, ok := profiles[uid]; ok {
			name = p.DisplayName
		}
		leaders = append(leaders, models.Leader{UserID: oid, Name: name})
	}
	return leaders, nil
}
