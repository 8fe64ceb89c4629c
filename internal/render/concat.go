package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Concatenate joins scene clips, in the given order, into one video using
// the concat demuxer with stream copy. All clips must share the renderer's
// fixed encode settings. A missing clip fails loudly with its index; a
// scene is never silently skipped.
func (r *FFmpegRenderer) Concatenate(ctx context.Context, clipPaths []string, outPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("concatenate: no clips")
	}

	var lines []string
	for i, p := range clipPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("concatenate: clip %d missing: %s: %w", i+1, p, err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", p))
	}

	listFile := filepath.Join(filepath.Dir(outPath), "concat.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("concatenate: write list: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	}
	if err := runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("concatenate: %w", err)
	}
	return nil
}
