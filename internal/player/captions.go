package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"videotrack/internal/cache"
	"videotrack/internal/events"
	"videotrack/internal/logger"
	"videotrack/internal/models"
	"videotrack/internal/transcript"
)

// captionLead shifts lookups forward so a caption shows slightly before its
// start time, in milliseconds.
const captionLead = 100

// ErrNoTranscriptURL is returned by Load when the player has no transcript URL.
var ErrNoTranscriptURL = errors.New("no transcript URL configured")

// Fetcher downloads transcripts.
type Fetcher interface {
	Fetch(ctx context.Context, req transcript.Request) (*transcript.Track, error)
}

// Captions keeps the active transcript and the caption currently shown.
// Transcript times are in milliseconds; player times are in seconds.
type Captions struct {
	player  *Player
	fetcher Fetcher
	cache   *cache.TranscriptCache
	logger  logger.Logger

	mutex        sync.RWMutex
	track        *transcript.Track
	language     string
	currentIndex int
}

func newCaptions(p *Player, f Fetcher, c *cache.TranscriptCache, log logger.Logger) *Captions {
	return &Captions{
		player:       p,
		fetcher:      f,
		cache:        c,
		logger:       log,
		currentIndex: -1,
	}
}

// Load makes the transcript for lang active, fetching it unless it is
// cached. An empty lang means the configured language. When the plain
// request fails and a YouTube id is configured, the fetch is retried with it.
func (c *Captions) Load(ctx context.Context, lang string) error {
	cfg := c.player.Config
	if lang == "" {
		lang = cfg.Language
	}

	if c.cache != nil {
		if track, found := c.cache.Get(lang); found {
			c.logger.Debugf("Using cached transcript for language %s", lang)
			c.LoadTrack(lang, track)
			return nil
		}
	}

	if cfg.TranscriptTranslationURL == "" {
		return ErrNoTranscriptURL
	}

	req := transcript.Request{URLTemplate: cfg.TranscriptTranslationURL, Language: lang}
	track, err := c.fetcher.Fetch(ctx, req)
	if err != nil && cfg.YoutubeID != "" && ctx.Err() == nil {
		c.logger.Infof("Transcript fetch for %s failed (%v), retrying with YouTube id", lang, err)
		req.YoutubeID = cfg.YoutubeID
		track, err = c.fetcher.Fetch(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s transcript: %w", lang, err)
	}

	if c.cache != nil {
		c.cache.Set(lang, track)
	}
	c.LoadTrack(lang, track)
	return nil
}

// LoadTrack makes track the active transcript for lang.
func (c *Captions) LoadTrack(lang string, track *transcript.Track) {
	c.mutex.Lock()
	c.track = track
	c.language = lang
	c.currentIndex = -1
	c.mutex.Unlock()

	c.logger.Infof("Loaded %s transcript with %d captions", lang, track.Size())
}

// Loaded reports whether a transcript is active.
func (c *Captions) Loaded() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.track != nil
}

// Language returns the language of the active transcript.
func (c *Captions) Language() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.language
}

// CurrentIndex returns the index, within Bounded, of the caption shown, or
// -1 when none has been shown since the transcript was loaded.
func (c *Captions) CurrentIndex() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.currentIndex
}

// Bounded returns the captions that start inside the configured clip.
func (c *Captions) Bounded() models.CaptionSet {
	c.mutex.RLock()
	track := c.track
	c.mutex.RUnlock()

	if track == nil {
		return models.CaptionSet{}
	}
	return c.bounded(track)
}

func (c *Captions) bounded(track *transcript.Track) models.CaptionSet {
	cfg := c.player.Config
	start := cfg.StartTime * 1000
	if end, ok := cfg.ClipEnd(); ok {
		return track.Filter(start, end*1000)
	}
	return track.FilterFrom(start)
}

func (c *Captions) search(track *transcript.Track, at float64) int {
	cfg := c.player.Config
	start := cfg.StartTime * 1000
	if end, ok := cfg.ClipEnd(); ok {
		return track.SearchWithin(at, start, end*1000)
	}
	return track.SearchFrom(at, start)
}

// UpdatePlayTime selects the caption for playback time t (seconds) and
// publishes a caption change when it differs from the one shown.
func (c *Captions) UpdatePlayTime(t float64) {
	c.mutex.Lock()
	if c.track == nil {
		c.mutex.Unlock()
		return
	}

	at := math.Round(t*1000 + captionLead)
	index := c.search(c.track, at)
	if index == c.currentIndex {
		c.mutex.Unlock()
		return
	}
	caption, ok := c.bounded(c.track).At(index)
	if !ok {
		c.mutex.Unlock()
		return
	}
	c.currentIndex = index
	c.mutex.Unlock()

	c.player.Events().Publish(events.Event{
		Type:  events.CaptionChanged,
		Time:  t,
		Index: caption.Index,
		Text:  caption.Text,
	})
}
