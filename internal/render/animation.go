// Package render turns a still image plus a speech clip into an animated
// scene clip, and stitches scene clips into the final video. All clips are
// encoded with identical fixed settings so concatenation is a stream copy.
package render

import (
	"fmt"
	"strings"

	"github.com/reelsmith/api/internal/model"
)

// Animator computes Ken Burns motion for a fixed canvas. Zoom and pan
// advance by a constant per-frame delta clamped at the target value; the
// recurrence form avoids the sampling jitter a time-based formula shows at
// low frame rates.
type Animator struct {
	Width   int
	Height  int
	FPS     int
	ZoomMax float64
	FadeSec float64
}

// Frames returns the total frame count for a clip of the given duration.
func (a Animator) Frames(durationSec float64) int {
	n := int(durationSec*float64(a.FPS) + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

func (a Animator) fadeFrames() int {
	return int(a.FadeSec*float64(a.FPS) + 0.5)
}

// showFrames is the window the show animation runs over: fade time is
// carved out of it, never overlapped, so the clip still matches the audio.
func (a Animator) showFrames(total int, plan model.AnimationPlan) int {
	n := total
	if plan.In == model.EntranceFade {
		n -= a.fadeFrames()
	}
	if plan.Out == model.ExitFade {
		n -= a.fadeFrames()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// zoomDelta is the constant per-frame zoom increment for the show window.
func (a Animator) zoomDelta(showFrames int) float64 {
	if showFrames < 1 {
		showFrames = 1
	}
	return (a.ZoomMax - 1.0) / float64(showFrames)
}

// panDelta is the constant per-frame horizontal travel in source pixels at
// the fixed pan zoom level.
func (a Animator) panDelta(showFrames int) float64 {
	travel := float64(a.Width) - float64(a.Width)/a.ZoomMax
	if showFrames < 1 {
		showFrames = 1
	}
	return travel / float64(showFrames)
}

// ZoomSequence evaluates the zoom recurrence for every frame of a clip:
// zoom(n) = min(zoom(n-1)+delta, max) for zoom-in, and the symmetric
// max/decrement form for zoom-out. Exposed so the linearity of the motion
// is directly testable.
func (a Animator) ZoomSequence(plan model.AnimationPlan, totalFrames int) []float64 {
	seq := make([]float64, totalFrames)
	delta := a.zoomDelta(a.showFrames(totalFrames, plan))
	switch plan.Show {
	case model.ShowZoomIn:
		z := 1.0
		for i := range seq {
			seq[i] = z
			z = min(z+delta, a.ZoomMax)
		}
	case model.ShowZoomOut:
		z := a.ZoomMax
		for i := range seq {
			seq[i] = z
			z = max(z-delta, 1.0)
		}
	default:
		for i := range seq {
			seq[i] = 1.0
		}
	}
	return seq
}

// PanSequence evaluates the horizontal pan recurrence: x advances by a
// constant per-frame delta toward the target edge and clamps there.
func (a Animator) PanSequence(plan model.AnimationPlan, totalFrames int) []float64 {
	seq := make([]float64, totalFrames)
	delta := a.panDelta(a.showFrames(totalFrames, plan))
	edge := float64(a.Width) - float64(a.Width)/a.ZoomMax
	switch plan.Show {
	case model.ShowPanRight:
		x := 0.0
		for i := range seq {
			seq[i] = x
			x = min(x+delta, edge)
		}
	case model.ShowPanLeft:
		x := edge
		for i := range seq {
			seq[i] = x
			x = max(x-delta, 0)
		}
	default:
		center := edge / 2
		for i := range seq {
			seq[i] = center
		}
	}
	return seq
}

// Filter builds the full ffmpeg video filter chain for one scene clip.
// The source image is normalized to the exact canvas with lanczos before
// any zoompan math runs; zooming against an unnormalized source and
// downscaling afterward is the dominant cause of visible jitter.
func (a Animator) Filter(plan model.AnimationPlan, durationSec float64) string {
	total := a.Frames(durationSec)
	show := a.showFrames(total, plan)

	parts := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos", a.Width, a.Height),
		fmt.Sprintf("crop=%d:%d", a.Width, a.Height),
		"setsar=1",
	}

	if zp := a.zoompanExpr(plan, show); zp != "" {
		parts = append(parts, fmt.Sprintf("zoompan=%s:d=%d:s=%dx%d:fps=%d", zp, total, a.Width, a.Height, a.FPS))
	}

	fade := a.FadeSec
	if plan.In == model.EntranceFade {
		parts = append(parts, fmt.Sprintf("fade=t=in:st=0:d=%.3f", fade))
	}
	if plan.Out == model.ExitFade {
		st := durationSec - fade
		if st < 0 {
			st = 0
		}
		parts = append(parts, fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f", st, fade))
	}

	parts = append(parts, "format=yuv420p")
	return strings.Join(parts, ",")
}

// zoompanExpr emits the zoompan z/x/y expressions in recurrence form:
// ffmpeg's zoom/px variables carry the previous frame's value, so
// min(zoom+delta,max) is exactly the constant-delta recurrence.
func (a Animator) zoompanExpr(plan model.AnimationPlan, showFrames int) string {
	zd := a.zoomDelta(showFrames)
	pd := a.panDelta(showFrames)
	center := "x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)'"

	switch plan.Show {
	case model.ShowZoomIn:
		return fmt.Sprintf("z='min(zoom+%.6f,%.3f)':%s", zd, a.ZoomMax, center)
	case model.ShowZoomOut:
		return fmt.Sprintf("z='if(eq(on,0),%.3f,max(zoom-%.6f,1.0))':%s", a.ZoomMax, zd, center)
	case model.ShowPanRight:
		return fmt.Sprintf("z='%.3f':x='if(eq(on,0),0,min(px+%.3f,iw-iw/zoom))':y='ih/2-(ih/zoom/2)'", a.ZoomMax, pd)
	case model.ShowPanLeft:
		return fmt.Sprintf("z='%.3f':x='if(eq(on,0),iw-iw/zoom,max(px-%.3f,0))':y='ih/2-(ih/zoom/2)'", a.ZoomMax, pd)
	default:
		return ""
	}
}
