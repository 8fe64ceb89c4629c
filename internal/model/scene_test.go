package model

import "testing"

func TestSpeechInputUsesProsodyWhenTextMatches(t *testing.T) {
	sc := Scene{
		Narration: "Slow down here. Then speed up.",
		Prosody: ProsodySegments{
			{Text: "Slow down here. ", Rate: "-20%"},
			{Text: "Then speed up.", Rate: "+10%"},
		},
	}

	in := sc.SpeechInput()
	if !in.Structured() {
		t.Fatalf("input = %+v, want structured", in)
	}
	if len(in.Segments) != 2 || in.Segments[0].Rate != "-20%" {
		t.Errorf("segments = %+v", in.Segments)
	}
}

func TestSpeechInputFallsBackOnTextDrift(t *testing.T) {
	sc := Scene{
		Narration: "The original line.",
		Prosody: ProsodySegments{
			{Text: "A rewritten line.", Rate: "+0%"},
		},
	}

	in := sc.SpeechInput()
	if in.Structured() {
		t.Fatalf("input = %+v, want plain fallback", in)
	}
	if in.Plain != "The original line." {
		t.Errorf("plain = %q", in.Plain)
	}
}

func TestSpeechInputPlainWithoutProsody(t *testing.T) {
	sc := Scene{Narration: "Just words."}
	if in := sc.SpeechInput(); in.Structured() || in.Plain != "Just words." {
		t.Errorf("input = %+v", sc.SpeechInput())
	}
}

func TestTimed(t *testing.T) {
	cases := []struct {
		start, end int64
		want       bool
	}{
		{0, 0, false},
		{0, 1500, true},
		{1500, 1500, false},
		{1500, 3000, true},
	}
	for _, c := range cases {
		sc := Scene{StartTimeMs: c.start, EndTimeMs: c.end}
		if sc.Timed() != c.want {
			t.Errorf("Timed() with [%d,%d) = %v", c.start, c.end, !c.want)
		}
	}
}

func TestAnimationPlanValid(t *testing.T) {
	if !DefaultAnimationPlan().Valid() {
		t.Error("default plan rejected")
	}
	bad := AnimationPlan{In: EntranceFade, Show: "spiral", Out: ExitFade}
	if bad.Valid() {
		t.Error("unknown show motion accepted")
	}
	if (AnimationPlan{}).Valid() {
		t.Error("zero plan accepted")
	}
}
