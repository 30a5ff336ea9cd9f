// Package completion reports a video as watched once playback passes a
// threshold, the media ends, or the player is age restricted for the viewer.
package completion

import (
	"context"
	"math"
	"sync"

	"videotrack/internal/events"
	"videotrack/internal/logger"
)

// RepostDelay is the minimum playback distance, in seconds, between two
// completion attempts driven by time updates.
const RepostDelay = 3.0

// Player is the part of the video player the tracker depends on.
type Player interface {
	// Duration returns the media length in seconds. Zero, negative and
	// non-finite values mean the length is not known yet.
	Duration() float64
	Events() *events.Bus
}

// Options configures a Tracker.
type Options struct {
	Enabled bool
	// Percentage is the fraction of the viewing window, in [0, 1], after
	// which the video counts as complete.
	Percentage float64
	StartTime  float64
	// EndTime bounds the viewing window. Zero means the end of the media.
	EndTime    float64
	PublishURL string
}

// State is the tracker's position in its lifecycle.
type State int

const (
	NotTracking State = iota
	Tracking
	Completed
)

func (s State) String() string {
	switch s {
	case NotTracking:
		return "not-tracking"
	case Tracking:
		return "tracking"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Threshold returns the playback time past which a clip [start, end] is complete.
func Threshold(start, end, percentage float64) float64 {
	return start + (end-start)*percentage
}

// Tracker watches a player's events and reports completion exactly once.
type Tracker struct {
	mutex    sync.Mutex
	player   Player
	reporter Reporter
	logger   logger.Logger
	opts     Options

	complete       bool
	sent           bool
	lastSentTime   float64
	thresholdKnown bool
	threshold      float64
	closed         bool
	unsubscribe    []events.Unsubscribe

	inflight sync.WaitGroup
}

// New creates a tracker. When opts.Enabled is false nothing is attached to
// the player and the tracker never reports.
func New(player Player, reporter Reporter, log logger.Logger, opts Options) *Tracker {
	t := &Tracker{
		player:   player,
		reporter: reporter,
		logger:   logger.OrNop(log),
		opts:     opts,
	}
	if !opts.Enabled {
		return t
	}

	if opts.EndTime > 0 {
		t.threshold = Threshold(opts.StartTime, opts.EndTime, opts.Percentage)
		t.thresholdKnown = true
	}

	bus := player.Events()
	t.unsubscribe = []events.Unsubscribe{
		bus.Subscribe(events.TimeUpdate, func(e events.Event) { t.HandleTimeUpdate(e.Time) }),
		bus.Subscribe(events.Ended, func(events.Event) { t.HandleEnded() }),
		bus.Subscribe(events.ContentRatingFlagged, func(events.Event) { t.HandleContentRatingFlagged() }),
		bus.Subscribe(events.Destroy, func(events.Event) { t.Close() }),
	}
	return t
}

// HandleTimeUpdate checks the playback position against the threshold.
func (t *Tracker) HandleTimeUpdate(currentTime float64) {
	if !finite(currentTime) {
		return
	}
	t.mutex.Lock()
	if !t.tracking() {
		t.mutex.Unlock()
		return
	}
	if t.sent && currentTime-t.lastSentTime < RepostDelay {
		t.mutex.Unlock()
		return
	}
	if !t.thresholdKnown {
		// Duration is not available until the media metadata has loaded.
		duration := t.player.Duration()
		if !finite(duration) || duration <= 0 {
			t.mutex.Unlock()
			return
		}
		end := t.opts.EndTime
		if end <= 0 {
			end = duration
		}
		t.threshold = Threshold(t.opts.StartTime, end, t.opts.Percentage)
		t.thresholdKnown = true
		t.logger.Debugf("Completion threshold set to %.3fs", t.threshold)
	}
	if currentTime <= t.threshold {
		t.mutex.Unlock()
		return
	}
	t.markComplete(currentTime, true)
	t.mutex.Unlock()

	t.dispatch(currentTime)
}

// HandleEnded marks the video complete when playback reaches the end.
func (t *Tracker) HandleEnded() {
	t.completeNow()
}

// HandleContentRatingFlagged marks the video complete when the viewer cannot
// watch it because of its content rating.
func (t *Tracker) HandleContentRatingFlagged() {
	t.completeNow()
}

func (t *Tracker) completeNow() {
	t.mutex.Lock()
	if !t.tracking() {
		t.mutex.Unlock()
		return
	}
	t.markComplete(0, false)
	t.mutex.Unlock()

	t.dispatch(0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// tracking requires t.mutex.
func (t *Tracker) tracking() bool {
	return t.opts.Enabled && !t.closed && !t.complete
}

// markComplete requires t.mutex. It is set before the report is sent so
// overlapping events cannot post twice.
func (t *Tracker) markComplete(at float64, timed bool) {
	t.complete = true
	t.sent = timed
	t.lastSentTime = at
}

func (t *Tracker) dispatch(at float64) {
	t.player.Events().Publish(events.Event{Type: events.Complete, Time: at})

	if t.opts.PublishURL == "" {
		t.logger.Warnf("publishCompletionUrl not defined, completion not submitted")
		return
	}

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.report()
	}()
}

func (t *Tracker) report() {
	err := t.reporter.Report(context.Background(), t.opts.PublishURL)
	if err != nil {
		t.mutex.Lock()
		t.complete = false
		t.mutex.Unlock()
		t.logger.Warnf("Failed to submit completion: %v", err)
		return
	}

	t.logger.Infof("Completion submitted to %s", t.opts.PublishURL)
	t.detach()
}

func (t *Tracker) detach() {
	t.mutex.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mutex.Unlock()

	for _, unsub := range unsubscribe {
		unsub()
	}
}

// Close detaches the tracker from the player. In-flight reports are left to
// finish on their own. Calling Close more than once is a no-op.
func (t *Tracker) Close() {
	t.mutex.Lock()
	t.closed = true
	t.mutex.Unlock()
	t.detach()
}

// Wait blocks until every in-flight report has resolved.
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

// IsComplete reports whether the video is currently marked complete.
func (t *Tracker) IsComplete() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.complete
}

// Threshold returns the completion threshold once it is known.
func (t *Tracker) Threshold() (float64, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.threshold, t.thresholdKnown
}

// State returns the tracker's lifecycle state.
func (t *Tracker) State() State {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	switch {
	case !t.opts.Enabled:
		return NotTracking
	case t.complete:
		return Completed
	default:
		return Tracking
	}
}
