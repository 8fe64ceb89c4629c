package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteSRT serializes cues in SubRip format.
func WriteSRT(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for _, c := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			c.Index, Timestamp(c.StartMs), Timestamp(c.EndMs), c.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSRTFile writes the cue list to path.
func WriteSRTFile(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	defer f.Close()
	if err := WriteSRT(f, cues); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Timestamp formats milliseconds as an SRT timestamp (HH:MM:SS,mmm).
func Timestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
