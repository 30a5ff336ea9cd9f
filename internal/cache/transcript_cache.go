package cache

import (
	"context"
	"sync"
	"time"

	"videotrack/internal/logger"
	"videotrack/internal/transcript"
)

// DefaultEvictionInterval is how often the eviction worker runs.
const DefaultEvictionInterval = 30 * time.Second

// ActiveProvider returns the set of keys that must survive eviction.
type ActiveProvider func() map[string]struct{}

// TranscriptCache is a thread-safe, in-memory cache of parsed transcripts,
// keyed by language.
type TranscriptCache struct {
	mutex          sync.RWMutex
	tracks         map[string]*transcript.Track
	logger         logger.Logger
	activeProvider ActiveProvider

	// EvictionInterval must be set before Start.
	EvictionInterval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	stopped sync.WaitGroup
}

// New creates and returns a new TranscriptCache. A nil provider keeps nothing
// during eviction.
func New(log logger.Logger, provider ActiveProvider) *TranscriptCache {
	ctx, cancel := context.WithCancel(context.Background())
	if provider == nil {
		provider = func() map[string]struct{} { return nil }
	}
	return &TranscriptCache{
		tracks:           make(map[string]*transcript.Track),
		logger:           logger.OrNop(log),
		activeProvider:   provider,
		EvictionInterval: DefaultEvictionInterval,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start begins the background eviction worker.
func (tc *TranscriptCache) Start() {
	tc.logger.Debugf("Starting transcript cache eviction worker (interval %v)", tc.EvictionInterval)
	tc.stopped.Add(1)
	go tc.evictionWorker()
}

// Stop shuts down the eviction worker and waits for it to exit.
func (tc *TranscriptCache) Stop() {
	tc.cancel()
	tc.stopped.Wait()
}

// Set adds a transcript to the cache.
func (tc *TranscriptCache) Set(key string, track *transcript.Track) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tracks[key] = track
	tc.logger.Debugf("Cached transcript: %s, %d captions", key, track.Size())
}

// Get retrieves a transcript from the cache.
func (tc *TranscriptCache) Get(key string) (*transcript.Track, bool) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	track, found := tc.tracks[key]
	return track, found
}

// Len returns the number of cached transcripts.
func (tc *TranscriptCache) Len() int {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return len(tc.tracks)
}

func (tc *TranscriptCache) evictionWorker() {
	defer tc.stopped.Done()

	ticker := time.NewTicker(tc.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tc.ctx.Done():
			tc.logger.Debugf("Transcript cache eviction worker stopped.")
			return
		case <-ticker.C:
			tc.Evict()
		}
	}
}

// Evict removes every transcript the active provider does not list and
// returns how many were dropped.
func (tc *TranscriptCache) Evict() int {
	activeKeys := tc.activeProvider()

	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	evicted := 0
	for key := range tc.tracks {
		if _, isActive := activeKeys[key]; !isActive {
			delete(tc.tracks, key)
			evicted++
		}
	}

	if evicted > 0 {
		tc.logger.Infof("Evicted %d transcripts from cache. Current cache size: %d.", evicted, len(tc.tracks))
	}
	return evicted
}
