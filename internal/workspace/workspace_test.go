package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Northern Lights", "northern-lights"},
		{"  The  Deep:  Ocean!  ", "the-deep-ocean"},
		{"épisode 42", "pisode-42"},
		{"---", ""},
		{"", ""},
		{strings.Repeat("a", 80), strings.Repeat("a", 60)},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreateLaysOutSubdirs(t *testing.T) {
	base := t.TempDir()

	d, err := Create(base, "Northern Lights")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(d.Root) != "northern-lights" {
		t.Errorf("root = %s", d.Root)
	}
	for _, p := range []string{d.Images, d.Audio, d.Tmp, d.Output} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("missing subdir %s: %v", p, err)
		}
	}
}

func TestCreateResolvesCollisions(t *testing.T) {
	base := t.TempDir()

	first, err := Create(base, "My Story")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Create(base, "My Story")
	if err != nil {
		t.Fatal(err)
	}
	if first.Root == second.Root {
		t.Fatalf("collision not resolved: %s", second.Root)
	}
	if !strings.HasPrefix(filepath.Base(second.Root), "my-story-") {
		t.Errorf("second root = %s", second.Root)
	}

	third, err := Create(base, "My Story")
	if err != nil {
		t.Fatal(err)
	}
	if third.Root == first.Root || third.Root == second.Root {
		t.Fatalf("collision not resolved: %s", third.Root)
	}
	if !strings.HasSuffix(third.Root, "-2") {
		t.Errorf("third root = %s", third.Root)
	}
}

func TestCreateEmptyNameFallsBack(t *testing.T) {
	base := t.TempDir()

	d, err := Create(base, "!!!")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(d.Root) != "project" {
		t.Errorf("root = %s", d.Root)
	}
}

func TestOpenRecreatesMissingSubdirs(t *testing.T) {
	base := t.TempDir()
	d, err := Create(base, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(d.Tmp); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(d.Root)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Root != d.Root {
		t.Errorf("root = %s, want %s", reopened.Root, d.Root)
	}
	if info, err := os.Stat(reopened.Tmp); err != nil || !info.IsDir() {
		t.Errorf("tmp not recreated: %v", err)
	}
}

func TestFileNames(t *testing.T) {
	d := layout("/work/demo")

	if got := d.ImageFile(7); got != filepath.Join("/work/demo/images", "scene_007.png") {
		t.Errorf("ImageFile = %s", got)
	}
	if got := d.AudioFile(12); got != filepath.Join("/work/demo/audio", "scene_012.mp3") {
		t.Errorf("AudioFile = %s", got)
	}
	if got := d.ClipFile(1); got != filepath.Join("/work/demo/tmp", "scene_001.mp4") {
		t.Errorf("ClipFile = %s", got)
	}
	if d.VideoFile() != filepath.Join("/work/demo/output", "final.mp4") {
		t.Errorf("VideoFile = %s", d.VideoFile())
	}
	if d.SubtitleFile() != filepath.Join("/work/demo/output", "final.srt") {
		t.Errorf("SubtitleFile = %s", d.SubtitleFile())
	}
}
