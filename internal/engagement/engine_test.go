package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type fixture struct {
	store  *repositories.MemoryStore
	engine *Engine
	alice  models.Identity
	bob    models.Identity
	video  models.Video
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()

	now := time.Now().UTC()
	alice := models.Identity{ID: models.NewID(), Username: "alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now}
	bob := models.Identity{ID: models.NewID(), Username: "bob", Email: "bob@example.com", CreatedAt: now, UpdatedAt: now}
	for _, u := range []models.Identity{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	video := models.Video{ID: models.NewID(), OwnerID: bob.ID, Title: "intro", IsPublished: true, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateVideo(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	return fixture{store: store, engine: NewEngine(store, store), alice: alice, bob: bob, video: video}
}

func TestToggleLikeAlternates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	want := []bool{true, false, true}
	for i, active := range want {
		res, err := f.engine.ToggleLike(ctx, f.alice.ID, models.TargetVideo, f.video.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if res.Active != active {
			t.Fatalf("toggle %d: expected active=%v got %v", i, active, res.Active)
		}
	}

	key := models.RelationKey{ActorID: f.alice.ID, Target: models.Target{Kind: models.TargetVideo, ID: f.video.ID}}
	present, err := f.store.HasRelation(ctx, key)
	if err != nil || !present {
		t.Fatalf("expected like to be present after three toggles, got %v %v", present, err)
	}
}

func TestConcurrentFirstTogglesLeaveOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]Result, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.engine.ToggleSubscription(ctx, f.alice.ID, f.bob.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	count, err := f.store.CountSubscribers(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("count subscribers: %v", err)
	}
	if count > 1 {
		t.Fatalf("expected at most one subscription record, got %d", count)
	}
}

// racingStore lets every create observe an absent edge before any insert lands.
type racingStore struct {
	*repositories.MemoryStore
	creates int
	mu      sync.Mutex
}

func (r *racingStore) HasRelation(context.Context, models.RelationKey) (bool, error) {
	return false, nil
}

func (r *racingStore) CreateRelation(ctx context.Context, rel models.Relation) error {
	r.mu.Lock()
	r.creates++
	r.mu.Unlock()
	return r.MemoryStore.CreateRelation(ctx, rel)
}

func TestLostCreateRaceReportsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	racing := &racingStore{MemoryStore: f.store}
	engine := NewEngine(racing, f.store)

	for i := 0; i < 2; i++ {
		res, err := engine.ToggleLike(ctx, f.alice.ID, models.TargetVideo, f.video.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if !res.Active {
			t.Fatalf("toggle %d: expected active after losing the insert race", i)
		}
	}
	if racing.creates != 2 {
		t.Fatalf("expected both toggles to attempt a create, got %d", racing.creates)
	}

	count, err := f.store.CountVideoLikes(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("count likes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one like record, got %d", count)
	}
}

func TestToggleErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() (Result, error)
		want error
	}{
		{
			name: "missing video",
			run: func() (Result, error) {
				return f.engine.ToggleLike(ctx, f.alice.ID, models.TargetVideo, models.NewID())
			},
			want: apperr.ErrNotFound,
		},
		{
			name: "missing channel",
			run: func() (Result, error) {
				return f.engine.ToggleSubscription(ctx, f.alice.ID, models.NewID())
			},
			want: apperr.ErrNotFound,
		},
		{
			name: "self subscription",
			run: func() (Result, error) {
				return f.engine.ToggleSubscription(ctx, f.alice.ID, f.alice.ID)
			},
			want: apperr.ErrValidation,
		},
		{
			name: "channel is not likeable",
			run: func() (Result, error) {
				return f.engine.ToggleLike(ctx, f.alice.ID, models.TargetChannel, f.bob.ID)
			},
			want: apperr.ErrValidation,
		},
		{
			name: "anonymous actor",
			run: func() (Result, error) {
				return f.engine.ToggleLike(ctx, models.NilID, models.TargetVideo, f.video.ID)
			},
			want: apperr.ErrAuthRequired,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.run()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	count, err := f.store.CountSubscriptions(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no subscription records after failed toggles, got %d", count)
	}
}

func TestSubscribeThenUnsubscribeCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if res, err := f.engine.ToggleSubscription(ctx, f.alice.ID, f.bob.ID); err != nil || !res.Active {
		t.Fatalf("subscribe: %+v %v", res, err)
	}
	if n, _ := f.store.CountSubscribers(ctx, f.bob.ID); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}

	if res, err := f.engine.ToggleSubscription(ctx, f.alice.ID, f.bob.ID); err != nil || res.Active {
		t.Fatalf("unsubscribe: %+v %v", res, err)
	}
	if n, _ := f.store.CountSubscribers(ctx, f.bob.ID); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}
