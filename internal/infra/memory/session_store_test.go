package memory

import (
	"context"
	"sync"
	"testing"

	"live-session-service/internal/domain"
)

func sampleSession() *domain.Session {
	return &domain.Session{
		ID:       "session-1",
		CourseID: "course-1",
		OwnerID:  "owner-1",
		Blocks: []*domain.SessionBlock{
			{
				ID:    "block-1",
				Order: 0,
				Instances: []*domain.QuestionInstance{
					{
						ID:   "instance-1",
						Type: domain.TypeSC,
						Question: domain.QuestionData{
							Choices:     []string{"A", "B", "C"},
							SolutionIxs: []int{1},
						},
					},
				},
			},
		},
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())

	sess, err := store.GetSession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != domain.SessionPrepared {
		t.Fatalf("status = %s, want PREPARED", sess.Status)
	}
	if sess.Blocks[0].Status != domain.BlockScheduled {
		t.Fatalf("block status = %s, want SCHEDULED", sess.Blocks[0].Status)
	}
	in := sess.Blocks[0].Instances[0]
	if in.BlockID != "block-1" {
		t.Fatalf("owning block not set: %q", in.BlockID)
	}
	if len(in.Results.Choices) != 3 || in.Results.Total != 0 {
		t.Fatalf("zero aggregate not installed: %+v", in.Results)
	}
}

func TestGetSessionReturnsSnapshot(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	a, _ := store.GetSession(ctx, "session-1")
	a.Status = domain.SessionCompleted
	a.Blocks[0].Instances[0].Results.Total = 99

	b, _ := store.GetSession(ctx, "session-1")
	if b.Status != domain.SessionPrepared || b.Blocks[0].Instances[0].Results.Total != 0 {
		t.Fatalf("snapshot mutation leaked into the store: %+v", b)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := NewSessionStore(nil)
	if _, err := store.GetSession(context.Background(), "nope"); err != domain.ErrSessionNotFound {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}

func TestCompareAndSwapSessionStatus(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	if err := store.CompareAndSwapSessionStatus(ctx, "session-1", domain.SessionPrepared, domain.SessionRunning); err != nil {
		t.Fatalf("swap: %v", err)
	}
	sess, _ := store.GetSession(ctx, "session-1")
	if sess.Status != domain.SessionRunning || sess.StartedAt.IsZero() {
		t.Fatalf("transition not applied: %+v", sess)
	}

	// The expected value moved, so the same swap now fails.
	if err := store.CompareAndSwapSessionStatus(ctx, "session-1", domain.SessionPrepared, domain.SessionRunning); err != domain.ErrStatusConflict {
		t.Fatalf("got %v, want ErrStatusConflict", err)
	}

	if err := store.CompareAndSwapSessionStatus(ctx, "session-1", domain.SessionRunning, domain.SessionCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	sess, _ = store.GetSession(ctx, "session-1")
	if sess.FinishedAt.IsZero() {
		t.Fatalf("finishedAt not stamped")
	}
}

func TestCompareAndSwapBlockStatus(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	if err := store.CompareAndSwapBlockStatus(ctx, "session-1", "nope", domain.BlockScheduled, domain.BlockActive); err != domain.ErrBlockNotFound {
		t.Fatalf("got %v, want ErrBlockNotFound", err)
	}
	if err := store.CompareAndSwapBlockStatus(ctx, "session-1", "block-1", domain.BlockScheduled, domain.BlockActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := store.CompareAndSwapBlockStatus(ctx, "session-1", "block-1", domain.BlockScheduled, domain.BlockActive); err != domain.ErrStatusConflict {
		t.Fatalf("got %v, want ErrStatusConflict", err)
	}
}

func TestCompareAndSwapActiveBlock(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	if err := store.CompareAndSwapActiveBlock(ctx, "session-1", "", "block-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.CompareAndSwapActiveBlock(ctx, "session-1", "", "block-2"); err != domain.ErrStatusConflict {
		t.Fatalf("second claim: got %v, want ErrStatusConflict", err)
	}
	if err := store.CompareAndSwapActiveBlock(ctx, "session-1", "block-1", ""); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestCompareAndSwapResultsVersion(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	sess, _ := store.GetSession(ctx, "session-1")
	results := sess.Blocks[0].Instances[0].Results.Clone()
	results.Choices[1]++
	results.Total++
	results.Version++

	if err := store.CompareAndSwapResults(ctx, "session-1", "instance-1", 0, results); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// Replaying with the stale expected version must fail.
	if err := store.CompareAndSwapResults(ctx, "session-1", "instance-1", 0, results); err != domain.ErrVersionConflict {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}
	if err := store.CompareAndSwapResults(ctx, "session-1", "nope", 0, results); err != domain.ErrInstanceNotFound {
		t.Fatalf("got %v, want ErrInstanceNotFound", err)
	}

	sess, _ = store.GetSession(ctx, "session-1")
	got := sess.Blocks[0].Instances[0].Results
	if got.Version != 1 || got.Choices[1] != 1 || got.Total != 1 {
		t.Fatalf("unexpected stored aggregate: %+v", got)
	}
}

// Under contention exactly one concurrent writer per version can win.
func TestConcurrentResultsSwapsSerialize(t *testing.T) {
	store := NewSessionStore(nil)
	store.Put(sampleSession())
	ctx := context.Background()

	const writers = 16
	wins := make(chan struct{}, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := store.GetSession(ctx, "session-1")
			if err != nil {
				return
			}
			results := sess.Blocks[0].Instances[0].Results.Clone()
			results.Total++
			results.Version++
			if err := store.CompareAndSwapResults(ctx, "session-1", "instance-1", 0, results); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}
}

type countingLoader struct {
	loader SessionLoader
	mu     sync.Mutex
	calls  int
}

func (l *countingLoader) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.loader.LoadSession(ctx, sessionID)
}

func TestLoaderFaultsInOnce(t *testing.T) {
	loader := &countingLoader{
		loader: NewStaticSessionLoader(map[string]*domain.Session{
			"session-1": sampleSession(),
		}),
	}
	store := NewSessionStore(loader)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.GetSession(ctx, "session-1"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()

	if loader.calls != 1 {
		t.Fatalf("loader calls = %d, want 1", loader.calls)
	}
}
