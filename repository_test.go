package rowcache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type user struct {
	ID   int64
	Name string
}

func userFromRecord(r *Record) (user, error) {
	id, err := r.Int64("id")
	if err != nil {
		return user{}, err
	}
	name, err := r.String("name")
	if err != nil {
		return user{}, err
	}
	return user{ID: id, Name: name}, nil
}

func TestRepositoryFind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.store.put("users", Row{"id": int64(1), "name": "Ada"})
	f.store.put("users", Row{"id": int64(2), "name": "Bob"})
	repo := NewRepository(f.m, users, userFromRecord)

	u, ok, err := repo.Find(ctx, IntID(1))
	if err != nil || !ok || u != (user{ID: 1, Name: "Ada"}) {
		t.Fatalf("Find: u=%v ok=%v err=%v", u, ok, err)
	}
	if _, ok, err := repo.Find(ctx, IntID(3)); err != nil || ok {
		t.Fatalf("Find missing: ok=%v err=%v", ok, err)
	}

	got, err := repo.FindMany(ctx, IntIDs(2, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	want := []user{{2, "Bob"}, {1, "Ada"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FindMany (-want +got):\n%s", diff)
	}

	if ok, err := repo.Forget(ctx, IntID(1)); err != nil || !ok {
		t.Fatalf("Forget: ok=%v err=%v", ok, err)
	}
}

func TestRepositoryHydrateError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.store.put("users", Row{"id": int64(1)})
	repo := NewRepository(f.m, users, userFromRecord)

	if _, _, err := repo.Find(ctx, IntID(1)); err == nil {
		t.Fatalf("expected hydrate error for missing name")
	}
	bad := NewRepository(f.m, users, func(*Record) (user, error) { return user{}, errors.New("nope") })
	if _, err := bad.FindMany(ctx, IntIDs(1)); err == nil {
		t.Fatalf("expected hydrate error from FindMany")
	}
}
