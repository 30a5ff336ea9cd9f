package transcript

import (
	"encoding/json"
	"fmt"

	"videotrack/internal/logger"
	"videotrack/internal/models"
)

// Track is a read-only, time-indexed transcript. Start times must be
// non-decreasing; the track does not reorder them.
type Track struct {
	start    []float64
	captions []string
}

// payload is the transcript document as served by the course.
type payload struct {
	Start []float64 `json:"start"`
	Text  []string  `json:"text"`
}

// NewTrack builds a track from parallel arrays. Both inputs are copied.
// When the lengths differ a warning is logged and both arrays are clamped
// to the shorter one.
func NewTrack(log logger.Logger, start []float64, captions []string) *Track {
	n := len(start)
	if len(captions) != n {
		logger.OrNop(log).Warnf("Caption and start time arrays do not match in length (%d start times, %d captions); using the first %d",
			len(start), len(captions), min(len(start), len(captions)))
		n = min(n, len(captions))
	}

	t := &Track{
		start:    make([]float64, n),
		captions: make([]string, n),
	}
	copy(t.start, start[:n])
	copy(t.captions, captions[:n])
	return t
}

// ParseTrack decodes a {"start": [...], "text": [...]} document.
func ParseTrack(log logger.Logger, data []byte) (*Track, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript JSON: %w", err)
	}
	return NewTrack(log, p.Start, p.Text), nil
}

// StartTimes returns a copy of the start times.
func (t *Track) StartTimes() []float64 {
	out := make([]float64, len(t.start))
	copy(out, t.start)
	return out
}

// Captions returns a copy of the caption strings.
func (t *Track) Captions() []string {
	out := make([]string, len(t.captions))
	copy(out, t.captions)
	return out
}

// Size returns the number of captions.
func (t *Track) Size() int {
	return len(t.start)
}

// Caption returns the caption at index i.
func (t *Track) Caption(i int) (models.Caption, bool) {
	if i < 0 || i >= len(t.start) {
		return models.Caption{}, false
	}
	return models.Caption{Index: i, Start: t.start[i], Text: t.captions[i]}, true
}

// Filter returns the captions whose start time lies in [start, end].
func (t *Track) Filter(start, end float64) models.CaptionSet {
	set := models.CaptionSet{Start: []float64{}, Captions: []string{}}
	for i, s := range t.start {
		if s >= start && s <= end {
			set.Start = append(set.Start, s)
			set.Captions = append(set.Captions, t.captions[i])
		}
	}
	return set
}

// FilterFrom is Filter with the end bound set to the last start time.
func (t *Track) FilterFrom(start float64) models.CaptionSet {
	if len(t.start) == 0 {
		return models.CaptionSet{Start: []float64{}, Captions: []string{}}
	}
	return t.Filter(start, t.start[len(t.start)-1])
}

// Search returns the greatest index i with StartTimes()[i] <= at.
// It returns 0 for an empty track and for times before the first caption.
func (t *Track) Search(at float64) int {
	return search(t.start, at)
}

// SearchWithin searches the subrange returned by Filter(start, end). The
// result indexes into that subrange.
func (t *Track) SearchWithin(at, start, end float64) int {
	return search(t.Filter(start, end).Start, at)
}

// SearchFrom searches the subrange returned by FilterFrom(start).
func (t *Track) SearchFrom(at, start float64) int {
	return search(t.FilterFrom(start).Start, at)
}

func search(start []float64, at float64) int {
	lo, hi := 0, len(start)-1
	for lo < hi {
		// Round up so lo always advances when at >= start[mid].
		mid := (lo + hi + 1) / 2
		if at < start[mid] {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo
}
