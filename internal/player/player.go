// Package player is a headless video player: it owns the playback clock,
// the event bus, the caption controller and the completion tracker for a
// single video.
package player

import (
	"math"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"videotrack/internal/cache"
	"videotrack/internal/completion"
	"videotrack/internal/config"
	"videotrack/internal/events"
	"videotrack/internal/logger"
	"videotrack/internal/transcript"
)

// Player holds the state for one video element.
type Player struct {
	ID     string
	Config config.Player

	Captions   *Captions
	Completion *completion.Tracker

	logger logger.Logger
	bus    *events.Bus

	mutex       sync.RWMutex
	currentTime float64
	duration    float64
	destroyed   bool
}

// Option customises a Player at construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
	fetcher    Fetcher
	reporter   completion.Reporter
	cache      *cache.TranscriptCache
}

// WithHTTPClient sets the client used for the completion report.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithFetcher replaces the transcript client.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithReporter replaces the completion reporter.
func WithReporter(r completion.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithCache shares a transcript cache between players.
func WithCache(c *cache.TranscriptCache) Option {
	return func(o *options) { o.cache = c }
}

// New creates a player for cfg.
func New(cfg config.Player, log logger.Logger, opts ...Option) *Player {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	id := uuid.NewString()
	log = logger.OrNop(log)
	if sl, ok := log.(*logger.SlogLogger); ok {
		log = sl.With("player", id)
	}

	if o.fetcher == nil {
		o.fetcher = transcript.NewClient(log, cfg.UserAgent)
	}
	if o.reporter == nil {
		o.reporter = completion.NewHTTPReporter(o.httpClient, cfg.UserAgent)
	}

	p := &Player{
		ID:       id,
		Config:   cfg,
		logger:   log,
		bus:      events.NewBus(),
		duration: cfg.Duration,
	}
	p.Captions = newCaptions(p, o.fetcher, o.cache, log)
	p.Completion = completion.New(p, o.reporter, log, completion.Options{
		Enabled:    cfg.CompletionEnabled,
		Percentage: cfg.CompletionPercentage,
		StartTime:  cfg.StartTime,
		EndTime:    cfg.EndTime,
		PublishURL: cfg.PublishCompletionURL,
	})

	log.Debugf("Player %s created (completion enabled: %t)", id, cfg.CompletionEnabled)
	return p
}

// Events returns the player's event bus.
func (p *Player) Events() *events.Bus {
	return p.bus
}

// Duration returns the media length in seconds, or 0 while unknown.
func (p *Player) Duration() float64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.duration
}

// SetDuration records the media length once metadata has loaded. A
// non-finite length is stored as 0, which means unknown.
func (p *Player) SetDuration(d float64) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		d = 0
	}
	p.mutex.Lock()
	p.duration = d
	p.mutex.Unlock()
}

// CurrentTime returns the last reported playback position.
func (p *Player) CurrentTime() float64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.currentTime
}

// UpdateTime moves the playback position and notifies subscribers.
// Non-finite positions are dropped.
func (p *Player) UpdateTime(t float64) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		p.logger.Debugf("Ignoring non-finite playback time %v", t)
		return
	}
	p.mutex.Lock()
	if p.destroyed {
		p.mutex.Unlock()
		return
	}
	p.currentTime = t
	p.mutex.Unlock()

	p.Captions.UpdatePlayTime(t)
	p.bus.Publish(events.Event{Type: events.TimeUpdate, Time: t})
}

// End signals that playback reached the end of the media.
func (p *Player) End() {
	if !p.Destroyed() {
		p.bus.Publish(events.Event{Type: events.Ended, Time: p.CurrentTime()})
	}
}

// FlagContentRating signals that the viewer is not allowed to watch the video.
func (p *Player) FlagContentRating() {
	if !p.Destroyed() {
		p.bus.Publish(events.Event{Type: events.ContentRatingFlagged})
	}
}

// Destroyed reports whether Destroy has been called.
func (p *Player) Destroyed() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.destroyed
}

// Destroy tears the player down. Subscribers receive a destroy event once.
func (p *Player) Destroy() {
	p.mutex.Lock()
	if p.destroyed {
		p.mutex.Unlock()
		return
	}
	p.destroyed = true
	p.mutex.Unlock()

	p.bus.Publish(events.Event{Type: events.Destroy})
	p.logger.Debugf("Player %s destroyed", p.ID)
}

// ActiveLanguages returns the transcript languages in use by the players
// that are still alive. It backs the transcript cache's eviction.
func ActiveLanguages(players ...*Player) map[string]struct{} {
	active := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p == nil || p.Destroyed() || !p.Captions.Loaded() {
			continue
		}
		active[p.Captions.Language()] = struct{}{}
	}
	return active
}
