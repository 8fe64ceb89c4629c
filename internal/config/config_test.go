package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Media.Width != 1920 || cfg.Media.FPS != 25 {
		t.Errorf("media defaults = %+v", cfg.Media)
	}
	if cfg.Pipeline.RetryAttempts != 3 || cfg.Pipeline.DefaultScenes != 5 {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.RateLimit.CreatePerHour != 20 || cfg.RateLimit.GeneratePerHour != 60 {
		t.Errorf("ratelimit defaults = %+v", cfg.RateLimit)
	}
}

func TestLoadBindsEnvForDefaultedKeys(t *testing.T) {
	t.Setenv("MEDIA_ZOOM_MAX", "1.25")
	t.Setenv("MEDIA_FADE_SEC", "0.8")
	t.Setenv("MEDIA_CRF", "18")
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "5")
	t.Setenv("PIPELINE_DEFAULT_VOICE", "tr-TR-EmelNeural")
	t.Setenv("RATELIMIT_CREATE_PER_HOUR", "3")
	t.Setenv("SWEEPER_INTERVAL_SEC", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Media.ZoomMax != 1.25 || cfg.Media.FadeSec != 0.8 || cfg.Media.CRF != 18 {
		t.Errorf("media from env = %+v", cfg.Media)
	}
	if cfg.Pipeline.RetryAttempts != 5 || cfg.Pipeline.DefaultVoice != "tr-TR-EmelNeural" {
		t.Errorf("pipeline from env = %+v", cfg.Pipeline)
	}
	if cfg.RateLimit.CreatePerHour != 3 {
		t.Errorf("ratelimit from env = %+v", cfg.RateLimit)
	}
	if cfg.Sweeper.IntervalSec != 60 {
		t.Errorf("sweeper from env = %+v", cfg.Sweeper)
	}
}
