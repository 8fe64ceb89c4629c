package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/reelsmith/api/internal/model"
)

// FFmpegRenderer encodes scene clips with ffmpeg. Every clip uses the same
// frame rate, codec profile and keyframe interval so the final assembly can
// stream-copy instead of re-encoding.
type FFmpegRenderer struct {
	anim        Animator
	crf         int
	keyInterval int
}

// NewFFmpegRenderer creates a renderer for the given fixed canvas settings.
func NewFFmpegRenderer(anim Animator, crf, keyInterval int) *FFmpegRenderer {
	return &FFmpegRenderer{anim: anim, crf: crf, keyInterval: keyInterval}
}

// Animator exposes the renderer's animation math.
func (r *FFmpegRenderer) Animator() Animator {
	return r.anim
}

// Oriented returns a copy of the renderer targeting a different canvas.
// Everything else (fps, zoom, fades, encode settings) carries over so
// clips from either orientation stay concat-compatible within a project.
func (r *FFmpegRenderer) Oriented(width, height int) *FFmpegRenderer {
	anim := r.anim
	anim.Width = width
	anim.Height = height
	return &FFmpegRenderer{anim: anim, crf: r.crf, keyInterval: r.keyInterval}
}

// RenderScene builds one animated clip from the scene's image and audio
// on a width x height canvas. The clip's duration equals the audio
// duration. A missing input file or an encode failure is fatal here;
// producing the inputs is an earlier stage's job, so there is nothing
// to retry at this layer.
func (r *FFmpegRenderer) RenderScene(ctx context.Context, sc *model.Scene, outPath string, width, height int) (string, error) {
	if width != r.anim.Width || height != r.anim.Height {
		return r.Oriented(width, height).RenderScene(ctx, sc, outPath, width, height)
	}
	if _, err := os.Stat(sc.ImagePath); err != nil {
		return "", fmt.Errorf("scene %d: image not readable: %w", sc.Order, err)
	}
	if _, err := os.Stat(sc.AudioPath); err != nil {
		return "", fmt.Errorf("scene %d: audio not readable: %w", sc.Order, err)
	}

	dur, err := ProbeDuration(ctx, sc.AudioPath)
	if err != nil {
		return "", fmt.Errorf("scene %d: %w", sc.Order, err)
	}

	filter := r.anim.Filter(sc.Animation, dur)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", sc.ImagePath,
		"-i", sc.AudioPath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", dur),
		"-r", fmt.Sprintf("%d", r.anim.FPS),
		"-c:v", "libx264",
		"-profile:v", "high",
		"-preset", "medium",
		"-crf", fmt.Sprintf("%d", r.crf),
		"-g", fmt.Sprintf("%d", r.keyInterval),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	}

	if err := runFFmpeg(ctx, args); err != nil {
		return "", fmt.Errorf("scene %d: encode: %w", sc.Order, err)
	}
	return outPath, nil
}

func runFFmpeg(ctx context.Context, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
