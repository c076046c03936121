package player

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/souzalb/tv-senai/internal/store"
)

type fakeSource struct {
	view  store.PlayerView
	found bool
	err   error
}

func (f *fakeSource) FetchView(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
	return f.view, f.found, f.err
}

func testView() store.PlayerView {
	return store.PlayerView{
		Display:  *testDisplay(),
		Playlist: playlistOf(5, 5),
	}
}

func TestSyncOnceArmsOnContent(t *testing.T) {
	source := &fakeSource{view: testView(), found: true}
	runner := NewRunner(RunnerOptions{DisplayID: "tv-1", Source: source})

	if !runner.syncOnce(context.Background()) {
		t.Fatal("first sync with content must request arming")
	}
	if runner.sched.State() != StateShowing {
		t.Fatalf("state=%v, want showing", runner.sched.State())
	}
}

func TestSyncOnceDisplayNotFound(t *testing.T) {
	source := &fakeSource{found: false}
	runner := NewRunner(RunnerOptions{DisplayID: "ghost", Source: source})

	if runner.syncOnce(context.Background()) {
		t.Fatal("missing display must not request arming")
	}
	if runner.sched.State() != StateError {
		t.Fatalf("state=%v, want error", runner.sched.State())
	}
}

func TestSyncOnceFetchErrorKeepsState(t *testing.T) {
	source := &fakeSource{view: testView(), found: true}
	runner := NewRunner(RunnerOptions{DisplayID: "tv-1", Source: source})
	runner.syncOnce(context.Background())
	runner.sched.Tick()

	source.err = errors.New("network down")
	if runner.syncOnce(context.Background()) {
		t.Fatal("failed fetch must not re-arm")
	}
	if runner.sched.State() != StateShowing || runner.sched.Index() != 1 {
		t.Fatalf("state=%v index=%d, want showing/1 preserved", runner.sched.State(), runner.sched.Index())
	}
}

func TestResolveFallsBackToCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "player.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	source := &fakeSource{view: testView(), found: true}
	runner := NewRunner(RunnerOptions{DisplayID: "tv-1", Source: source, Cache: cache})

	// A successful fetch populates the cache.
	if _, found, ok := runner.resolve(ctx); !found || !ok {
		t.Fatal("initial resolve must succeed")
	}

	// The next fetch fails; the cached snapshot keeps the player going.
	source.err = errors.New("server unreachable")
	view, found, ok := runner.resolve(ctx)
	if !found || !ok {
		t.Fatal("resolve must fall back to the cached snapshot")
	}
	if view.Display.DisplayID != "tv-1" || view.Playlist == nil || len(view.Playlist.Slides) != 2 {
		t.Fatalf("cached view %+v, want the saved snapshot", view)
	}
}

func TestResolveNoCacheNoFallback(t *testing.T) {
	source := &fakeSource{err: errors.New("server unreachable")}
	runner := NewRunner(RunnerOptions{DisplayID: "tv-1", Source: source})

	if _, _, ok := runner.resolve(context.Background()); ok {
		t.Fatal("resolve without cache must report failure")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "player.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if _, found, err := cache.Load(ctx, "tv-1"); err != nil || found {
		t.Fatalf("empty cache load found=%v err=%v, want miss", found, err)
	}

	view := testView()
	if err := cache.Save(ctx, view); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Saving again overwrites, it does not duplicate.
	view.Playlist = playlistOf(9)
	if err := cache.Save(ctx, view); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, found, err := cache.Load(ctx, "tv-1")
	if err != nil || !found {
		t.Fatalf("load found=%v err=%v, want hit", found, err)
	}
	if got.Playlist == nil || len(got.Playlist.Slides) != 1 || got.Playlist.Slides[0].DurationSeconds != 9 {
		t.Fatalf("loaded view %+v, want the latest snapshot", got)
	}
}

func TestRunnerStops(t *testing.T) {
	source := &fakeSource{view: testView(), found: true}
	runner := NewRunner(RunnerOptions{DisplayID: "tv-1", Source: source, PollInterval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
