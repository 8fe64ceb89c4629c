package pipeline

import "github.com/reelsmith/api/internal/model"

// AssignTimings walks scenes in order and gives each one a contiguous
// [start, end) window on the project timeline from its audio duration.
// Scenes that already carry a timing keep it untouched; the cursor
// advances past them so later scenes line up. Returns the scenes whose
// timing changed.
func AssignTimings(scenes []*model.Scene) []*model.Scene {
	var changed []*model.Scene
	var cursor int64
	for _, sc := range scenes {
		if sc.Timed() {
			cursor = sc.EndTimeMs
			continue
		}
		sc.StartTimeMs = cursor
		sc.EndTimeMs = cursor + sc.DurationMs
		cursor = sc.EndTimeMs
		changed = append(changed, sc)
	}
	return changed
}
