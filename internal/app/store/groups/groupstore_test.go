package groupstore_test

import (
	"errors"
	"sync"
	"testing"

	groupstore "github.com/iliyababin/youthscc/internal/app/store/groups"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"github.com/iliyababin/youthscc/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setup(t *testing.T) (*groupstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return groupstore.New(db), testutil.NewFixtures(t, db)
}

func TestCreateAndGet(t *testing.T) {
	store, _ := setup(t)
	ctx := testutil.TestContext(t)

	created, err := store.Create(ctx, models.BibleStudyGroup{
		Name:        "Youth Group",
		Description: "Weekly study",
		Location:    "Room 101",
		MeetingTimes: []models.MeetingTime{
			{DayOfWeek: "Monday", Hour: 19, Minute: 0},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Members == nil || len(created.Members) != 0 {
		t.Error("new group should have an empty, non-nil members list")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Youth Group" {
		t.Errorf("unexpected group %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	store, _ := setup(t)
	ctx := testutil.TestContext(t)

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_SortedByName(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	fx.CreateGroup(ctx, "Zebra Group")
	fx.CreateGroup(ctx, "Alpha Group")

	groups, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "Alpha Group" || groups[1].Name != "Zebra Group" {
		t.Errorf("groups not sorted by name: %q, %q", groups[0].Name, groups[1].Name)
	}
}

func TestUpdate(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Before")
	err := store.Update(ctx, g.ID, groupstore.Update{
		Name:        "After",
		Description: "Updated",
		Location:    "Room 202",
		MeetingTimes: []models.MeetingTime{
			{DayOfWeek: "Friday", Hour: 18, Minute: 30},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.GetByID(ctx, g.ID)
	if got.Name != "After" || got.Location != "Room 202" {
		t.Errorf("update not applied: %+v", got)
	}

	if err := store.Update(ctx, primitive.NewObjectID(), groupstore.Update{Name: "X"}); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing group, got %v", err)
	}
}

func TestUpdate_DoesNotTouchMembers(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Group")
	uid := primitive.NewObjectID()
	if _, err := store.Join(ctx, g.ID, uid); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := store.Update(ctx, g.ID, groupstore.Update{Name: "Renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.GetByID(ctx, g.ID)
	if !got.HasMember(uid) {
		t.Error("update must not drop existing members")
	}
}

func TestJoin_Idempotent(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Group")
	uid := primitive.NewObjectID()

	joined, err := store.Join(ctx, g.ID, uid)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !joined {
		t.Error("first join should report joined")
	}

	joined, err = store.Join(ctx, g.ID, uid)
	if err != nil {
		t.Fatalf("second Join: %v", err)
	}
	if joined {
		t.Error("second join should be a no-op")
	}

	got, _ := store.GetByID(ctx, g.ID)
	if len(got.Members) != 1 {
		t.Errorf("expected exactly 1 membership, got %d", len(got.Members))
	}
}

func TestJoin_ConcurrentRequestsAddOnce(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Group")
	uid := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Join(ctx, g.ID, uid)
		}()
	}
	wg.Wait()

	got, _ := store.GetByID(ctx, g.ID)
	if len(got.Members) != 1 {
		t.Errorf("expected 1 membership after concurrent joins, got %d", len(got.Members))
	}
}

func TestJoin_MissingGroup(t *testing.T) {
	store, _ := setup(t)
	ctx := testutil.TestContext(t)

	_, err := store.Join(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeave(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Group")
	uid := primitive.NewObjectID()
	other := primitive.NewObjectID()
	store.Join(ctx, g.ID, uid)
	store.Join(ctx, g.ID, other)

	removed, err := store.Leave(ctx, g.ID, uid)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if !removed {
		t.Error("expected membership removed")
	}

	// Other memberships are untouched.
	got, _ := store.GetByID(ctx, g.ID)
	if got.HasMember(uid) || !got.HasMember(other) {
		t.Errorf("unexpected members after leave: %+v", got.Members)
	}

	// Leaving again is a no-op.
	removed, err = store.Leave(ctx, g.ID, uid)
	if err != nil {
		t.Fatalf("second Leave: %v", err)
	}
	if removed {
		t.Error("second leave should be a no-op")
	}
}

func TestDelete(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	g := fx.CreateGroup(ctx, "Group")
	if err := store.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, g.ID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, g.ID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestRemoveUserFromAllGroups(t *testing.T) {
	store, fx := setup(t)
	ctx := testutil.TestContext(t)

	uid := primitive.NewObjectID()
	g1 := fx.CreateGroup(ctx, "One", models.Leader{UserID: uid, Name: "Jane Doe"})
	g2 := fx.CreateGroup(ctx, "Two")
	store.Join(ctx, g1.ID, uid)
	store.Join(ctx, g2.ID, uid)

	if err := store.RemoveUserFromAllGroups(ctx, uid); err != nil {
		t.Fatalf("RemoveUserFromAllGroups: %v", err)
	}

	for _, id := range []primitive.ObjectID{g1.ID, g2.ID} {
		g, _ := store.GetByID(ctx, id)
		if g.HasMember(uid) {
			t.Errorf("group %s still has membership", g.Name)
		}
		for _, l := range g.Leaders {
			if l.UserID == uid {
				t.Errorf("group %s still lists user as leader", g.Name)
			}
		}
	}
}
