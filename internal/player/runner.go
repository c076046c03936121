package player

import (
	"context"
	"log"
	"time"

	"github.com/souzalb/tv-senai/internal/store"
)

// Source resolves a display's current assignment. found is false when the
// display id is unknown.
type Source interface {
	FetchView(ctx context.Context, displayID string) (store.PlayerView, bool, error)
}

// Runner owns the slide timer for one display. It polls the source, feeds the
// result into the scheduler, and advances the rotation when the timer fires.
// The timer is armed in exactly one place and cancelled in exactly one place,
// so a stale expiry can never fire against an invalidated index.
type Runner struct {
	displayID    string
	source       Source
	cache        *Cache
	pollInterval time.Duration
	sched        *Scheduler

	lastReport string
}

type RunnerOptions struct {
	DisplayID    string
	Source       Source
	Cache        *Cache
	PollInterval time.Duration
}

func NewRunner(opts RunnerOptions) *Runner {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return &Runner{
		displayID:    opts.DisplayID,
		source:       opts.Source,
		cache:        opts.Cache,
		pollInterval: poll,
		sched:        NewScheduler(),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	poll := time.NewTicker(r.pollInterval)
	defer poll.Stop()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	armed := false

	disarm := func() {
		if armed {
			stopTimer(timer)
			armed = false
		}
	}
	arm := func() {
		disarm()
		if duration := r.sched.ActiveDuration(); duration > 0 {
			timer.Reset(duration)
			armed = true
		}
	}

	if r.syncOnce(ctx) {
		arm()
	}
	r.report()

	for {
		select {
		case <-ctx.Done():
			disarm()
			return ctx.Err()
		case <-poll.C:
			if r.syncOnce(ctx) {
				arm()
			} else if r.sched.State() != StateShowing {
				disarm()
			}
			r.report()
		case <-timer.C:
			armed = false
			r.sched.Tick()
			arm()
			r.report()
		}
	}
}

// syncOnce fetches the latest assignment and re-derives the scheduler state.
// Returns true when the timer must be re-armed. A fetch failure keeps the
// last known state: the cache (when present) covers the cold start, and a
// display already showing keeps rotating from its local snapshot.
func (r *Runner) syncOnce(ctx context.Context) bool {
	view, found, ok := r.resolve(ctx)
	if !ok {
		return false
	}
	if !found {
		return r.sched.Sync(nil, nil)
	}
	return r.sched.Sync(&view.Display, view.Playlist)
}

// resolve fetches from the source, falling back to the cached snapshot on
// error. ok is false when nothing usable was obtained.
func (r *Runner) resolve(ctx context.Context) (store.PlayerView, bool, bool) {
	view, found, err := r.source.FetchView(ctx, r.displayID)
	if err == nil {
		if found && r.cache != nil {
			if cacheErr := r.cache.Save(ctx, view); cacheErr != nil {
				log.Printf("player cache save error: %v", cacheErr)
			}
		}
		return view, found, true
	}
	log.Printf("player fetch error: %v", err)

	if r.cache == nil {
		return store.PlayerView{}, false, false
	}
	cached, found, cacheErr := r.cache.Load(ctx, r.displayID)
	if cacheErr != nil {
		log.Printf("player cache load error: %v", cacheErr)
		return store.PlayerView{}, false, false
	}
	if !found {
		return store.PlayerView{}, false, false
	}
	return cached, true, true
}

// report logs the visible state, once per change.
func (r *Runner) report() {
	var line string
	switch r.sched.State() {
	case StateIdle:
		line = "starting up"
	case StateEmpty:
		line = "waiting for content"
	case StateError:
		line = "display configuration not found"
	case StateShowing:
		slide, ok := r.sched.ActiveSlide()
		if !ok {
			return
		}
		line = "showing slide " + slide.SlideID + " url=" + slide.URL + " for " + r.sched.ActiveDuration().String()
	}
	if line == r.lastReport {
		return
	}
	r.lastReport = line
	log.Printf("player display=%s state=%s %s", r.displayID, r.sched.State(), line)
}

// stopTimer stops and drains a timer so a buffered expiry cannot leak into the
// next select iteration.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
