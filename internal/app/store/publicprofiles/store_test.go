package publicprofiles_test

import (
	"testing"

	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	"github.com/iliyababin/youthscc/internal/testutil"
)

func TestUpsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := publicprofiles.New(db)

	if err := store.Upsert(ctx, "u1", "Jane  Doe"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	p, err := store.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p == nil || p.DisplayName != "Jane Doe" {
		t.Errorf("expected normalized name, got %+v", p)
	}

	// Second upsert overwrites.
	if err := store.Upsert(ctx, "u1", "Jane Smith"); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	p, _ = store.GetByID(ctx, "u1")
	if p.DisplayName != "Jane Smith" {
		t.Errorf("expected updated name, got %q", p.DisplayName)
	}
}

func TestGetByID_Absent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := publicprofiles.New(db)

	p, err := store.GetByID(ctx, "missing")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for missing profile, got %+v", p)
	}
}

func TestGetMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := publicprofiles.New(db)

	store.Upsert(ctx, "u1", "Jane Doe")
	store.Upsert(ctx, "u2", "John Roe")

	got, err := store.GetMany(ctx, []string{"u1", "u2", "missing"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(got))
	}
	if got["u1"].DisplayName != "Jane Doe" {
		t.Errorf("unexpected profile for u1: %+v", got["u1"])
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing profile should be absent from result")
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := publicprofiles.New(db)

	store.Upsert(ctx, "u1", "Jane Doe")
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p, _ := store.GetByID(ctx, "u1")
	if p != nil {
		t.Error("expected profile gone after delete")
	}
}
