// Package workspace manages the on-disk directory layout for one project:
// a slugged root directory containing images/, audio/, tmp/ and output/.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Dir holds the resolved paths of one project workspace.
type Dir struct {
	Root   string
	Images string
	Audio  string
	Tmp    string
	Output string
}

// Create builds a fresh workspace under base, deriving the directory name
// from name. Collisions are resolved with a date suffix, then a counter.
func Create(base, name string) (Dir, error) {
	slug := Slugify(name)
	if slug == "" {
		slug = "project"
	}

	root := filepath.Join(base, slug)
	if exists(root) {
		root = filepath.Join(base, slug+"-"+time.Now().Format("20060102"))
	}
	for n := 2; exists(root); n++ {
		root = filepath.Join(base, fmt.Sprintf("%s-%s-%d", slug, time.Now().Format("20060102"), n))
	}

	d := layout(root)
	if err := d.ensure(); err != nil {
		return Dir{}, err
	}
	return d, nil
}

// Open returns the workspace rooted at an existing project directory,
// recreating any missing subdirectories.
func Open(root string) (Dir, error) {
	d := layout(root)
	if err := d.ensure(); err != nil {
		return Dir{}, err
	}
	return d, nil
}

func layout(root string) Dir {
	return Dir{
		Root:   root,
		Images: filepath.Join(root, "images"),
		Audio:  filepath.Join(root, "audio"),
		Tmp:    filepath.Join(root, "tmp"),
		Output: filepath.Join(root, "output"),
	}
}

func (d Dir) ensure() error {
	for _, p := range []string{d.Root, d.Images, d.Audio, d.Tmp, d.Output} {
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("create workspace dir %s: %w", p, err)
		}
	}
	return nil
}

// ImageFile returns the image path for a scene order.
func (d Dir) ImageFile(order int) string {
	return filepath.Join(d.Images, fmt.Sprintf("scene_%03d.png", order))
}

// AudioFile returns the audio path for a scene order.
func (d Dir) AudioFile(order int) string {
	return filepath.Join(d.Audio, fmt.Sprintf("scene_%03d.mp3", order))
}

// ClipFile returns the temp clip path for a scene order.
func (d Dir) ClipFile(order int) string {
	return filepath.Join(d.Tmp, fmt.Sprintf("scene_%03d.mp4", order))
}

// VideoFile returns the final video path.
func (d Dir) VideoFile() string {
	return filepath.Join(d.Output, "final.mp4")
}

// SubtitleFile returns the final subtitle path.
func (d Dir) SubtitleFile() string {
	return filepath.Join(d.Output, "final.srt")
}

// Slugify lowercases s and keeps letters and digits, collapsing everything
// else into single hyphens. The result is capped at 60 characters.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
