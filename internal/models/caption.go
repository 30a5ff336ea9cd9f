package models

// Caption is a single subtitle unit of a transcript.
type Caption struct {
	// Index is the caption's position within the set it was taken from.
	Index int
	// Start is the time the caption becomes visible, in the transcript's
	// time unit (milliseconds for transcripts served by the course).
	Start float64
	// Text is the caption content.
	Text string
}

// CaptionSet holds parallel start times and caption strings.
// Captions[i] is displayed from Start[i] until Start[i+1].
type CaptionSet struct {
	Start    []float64 `json:"start"`
	Captions []string  `json:"text"`
}

// Len returns the number of captions in the set.
func (s CaptionSet) Len() int {
	return len(s.Start)
}

// At returns the caption at index i.
func (s CaptionSet) At(i int) (Caption, bool) {
	if i < 0 || i >= len(s.Start) || i >= len(s.Captions) {
		return Caption{}, false
	}
	return Caption{Index: i, Start: s.Start[i], Text: s.Captions[i]}, true
}
