// Package subtitle builds the caption track for a finished project. A
// project uses exactly one cue mode: word-timed when every scene produced
// word boundaries, otherwise one cue per scene. The two are never mixed in
// one file.
package subtitle

import (
	"sort"

	"github.com/reelsmith/api/internal/model"
)

// Phrase grouping bounds for word-timed cues.
const (
	maxPhraseChars = 42
	maxPhraseGapMs = 600
)

// hnsPerMs converts hundred-nanosecond ticks to milliseconds.
const hnsPerMs = 10_000

// Cue is one subtitle entry.
type Cue struct {
	Index   int
	StartMs int64
	EndMs   int64
	Text    string
}

// Mode identifies which cue source a project's track was built from.
type Mode string

const (
	ModeWordTimed  Mode = "word_timed"
	ModeSceneTimed Mode = "scene_timed"
)

// DecideMode picks the track mode for a project: word-timed only if every
// scene carries at least one word boundary.
func DecideMode(scenes []model.Scene) Mode {
	if len(scenes) == 0 {
		return ModeSceneTimed
	}
	for _, sc := range scenes {
		if len(sc.WordBoundaries) == 0 {
			return ModeSceneTimed
		}
	}
	return ModeWordTimed
}

// Build assembles the project's cues. Scenes must be in ascending order
// with timing assigned.
func Build(scenes []model.Scene) (Mode, []Cue) {
	mode := DecideMode(scenes)
	if mode == ModeSceneTimed {
		return mode, sceneCues(scenes)
	}
	return mode, wordCues(scenes)
}

// sceneCues emits exactly one cue per scene spanning its start/end time.
func sceneCues(scenes []model.Scene) []Cue {
	cues := make([]Cue, 0, len(scenes))
	for _, sc := range scenes {
		cues = append(cues, Cue{
			Index:   len(cues) + 1,
			StartMs: sc.StartTimeMs,
			EndMs:   sc.EndTimeMs,
			Text:    sc.Narration,
		})
	}
	return cues
}

type timedWord struct {
	text    string
	startMs int64
	endMs   int64
}

// wordCues shifts every scene's boundaries by that scene's start time,
// sorts the project-wide list by offset, and groups adjacent words into
// phrase cues bounded by length and gap.
func wordCues(scenes []model.Scene) []Cue {
	var words []timedWord
	for _, sc := range scenes {
		for _, wb := range sc.WordBoundaries {
			start := sc.StartTimeMs + wb.OffsetHns/hnsPerMs
			words = append(words, timedWord{
				text:    wb.Text,
				startMs: start,
				endMs:   start + wb.DurationHns/hnsPerMs,
			})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].startMs < words[j].startMs })

	var cues []Cue
	var cur []timedWord
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		text := cur[0].text
		for _, w := range cur[1:] {
			text += " " + w.text
		}
		cues = append(cues, Cue{
			Index:   len(cues) + 1,
			StartMs: cur[0].startMs,
			EndMs:   cur[len(cur)-1].endMs,
			Text:    text,
		})
		cur = cur[:0]
		curLen = 0
	}

	for _, w := range words {
		if len(cur) > 0 {
			gap := w.startMs - cur[len(cur)-1].endMs
			if gap > maxPhraseGapMs || curLen+1+len(w.text) > maxPhraseChars {
				flush()
			}
		}
		cur = append(cur, w)
		curLen += len(w.text)
		if len(cur) > 1 {
			curLen++ // joining space
		}
	}
	flush()

	return cues
}
