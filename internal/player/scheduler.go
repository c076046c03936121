// Package player drives one display: it keeps a local snapshot of the
// display's assignment and rotates through the assigned slides on a timer.
package player

import (
	"sort"
	"time"

	"github.com/souzalb/tv-senai/internal/models"
)

type State int

const (
	// StateIdle is the initial state before the first sync.
	StateIdle State = iota
	// StateShowing means a slide is on screen and a timer is armed.
	StateShowing
	// StateEmpty means the display resolved but has no content to play.
	StateEmpty
	// StateError means the display id did not resolve to a known display.
	// Recoverable only by a later successful sync.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShowing:
		return "showing"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	}
	return "unknown"
}

const (
	minSlideSeconds      = 1
	fallbackSlideSeconds = 10
)

// Scheduler is the slide-rotation state machine for a single display. It holds
// no timer itself; the runner owns the timer and calls Tick when it fires.
type Scheduler struct {
	state  State
	index  int
	slides []models.Slide
}

func NewScheduler() *Scheduler {
	return &Scheduler{state: StateIdle}
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) Index() int { return s.index }

func (s *Scheduler) SlideCount() int { return len(s.slides) }

// ActiveSlide returns the slide at the current index, if any.
func (s *Scheduler) ActiveSlide() (models.Slide, bool) {
	if s.state != StateShowing || s.index >= len(s.slides) {
		return models.Slide{}, false
	}
	return s.slides[s.index], true
}

// ActiveDuration is how long the current slide stays on screen. Non-positive
// configured durations fall back to a default so the rotation neither stalls
// nor spins.
func (s *Scheduler) ActiveDuration() time.Duration {
	slide, ok := s.ActiveSlide()
	if !ok {
		return 0
	}
	return slideDuration(slide)
}

func slideDuration(slide models.Slide) time.Duration {
	if slide.DurationSeconds < minSlideSeconds {
		return fallbackSlideSeconds * time.Second
	}
	return time.Duration(slide.DurationSeconds) * time.Second
}

// Sync re-derives the active slide list from the latest known assignment.
// display is nil when the display id did not resolve; playlist is nil when the
// display is unassigned or the assignment dangles.
//
// The returned rearm flag tells the runner whether the timer must be (re)armed
// for the slide now at the current index. When the index survives the change
// in bounds, rearm is false: the slide already on screen runs its armed timer
// to completion, so content edits never interrupt what is currently showing.
// That also means a changed duration for the current slide takes effect the
// next time the slide comes around, not retroactively.
func (s *Scheduler) Sync(display *models.Display, playlist *models.Playlist) (rearm bool) {
	if display == nil {
		s.state = StateError
		s.index = 0
		s.slides = nil
		return false
	}

	var slides []models.Slide
	if playlist != nil {
		slides = sortedSlides(playlist.Slides)
	}
	if len(slides) == 0 {
		s.state = StateEmpty
		s.index = 0
		s.slides = nil
		return false
	}

	wasShowing := s.state == StateShowing
	s.slides = slides
	s.state = StateShowing
	if !wasShowing || s.index >= len(slides) {
		s.index = 0
		return true
	}
	return false
}

// Tick advances to the next slide, wrapping at the end of the list. The runner
// calls it when the armed timer expires; it is a no-op outside StateShowing.
func (s *Scheduler) Tick() {
	if s.state != StateShowing || len(s.slides) == 0 {
		return
	}
	s.index = (s.index + 1) % len(s.slides)
}

// sortedSlides copies and orders slides by their sort key. Order values are a
// sort key only; duplicates and gaps are tolerated, with slide id as the
// tiebreaker so the result is stable.
func sortedSlides(slides []models.Slide) []models.Slide {
	sorted := make([]models.Slide, len(slides))
	copy(sorted, slides)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SortOrder != sorted[j].SortOrder {
			return sorted[i].SortOrder < sorted[j].SortOrder
		}
		return sorted[i].SlideID < sorted[j].SlideID
	})
	return sorted
}
