package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	MySQL     MySQLConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	TextGen   TextGenConfig
	Speech    SpeechConfig
	Image     ImageConfig
	R2        R2Config
	Media     MediaConfig
	Paths     PathsConfig
	Pipeline  PipelineConfig
	Sweeper   SweeperConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type MySQLConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	CreatePerHour   int
	GeneratePerHour int
}

type TextGenConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SpeechConfig struct {
	ServiceURL string
	APIKey     string
	Timeout    int // seconds
}

type ImageConfig struct {
	BaseURL string
	Model   string
	Timeout int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// MediaConfig holds the fixed canvas and encode parameters every scene clip
// shares; stream-copy concatenation depends on these never varying per scene.
type MediaConfig struct {
	Width        int
	Height       int
	FPS          int
	ZoomMax      float64
	FadeSec      float64
	CRF          int
	KeyInterval  int
	ImageWorkers int
}

type PathsConfig struct {
	DataDir string
}

type PipelineConfig struct {
	RetryAttempts int
	RetryBaseMs   int
	WorkerCount   int
	DefaultScenes int
	DefaultVoice  string
}

type SweeperConfig struct {
	Enabled        bool
	TimeoutMinutes int
	IntervalSec    int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("TEXTGEN_API_KEY")
	readSecret("SPEECH_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("MYSQL_DSN")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("textgen.api_key", "TEXTGEN_API_KEY")
	_ = viper.BindEnv("textgen.base_url", "TEXTGEN_BASE_URL")
	_ = viper.BindEnv("textgen.model", "TEXTGEN_MODEL")
	_ = viper.BindEnv("speech.service_url", "SPEECH_SERVICE_URL")
	_ = viper.BindEnv("speech.api_key", "SPEECH_API_KEY")
	_ = viper.BindEnv("speech.timeout", "SPEECH_TIMEOUT")
	_ = viper.BindEnv("image.base_url", "IMAGE_BASE_URL")
	_ = viper.BindEnv("image.model", "IMAGE_MODEL")
	_ = viper.BindEnv("image.timeout", "IMAGE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("ratelimit.create_per_hour", "RATELIMIT_CREATE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("media.width", "MEDIA_WIDTH")
	_ = viper.BindEnv("media.height", "MEDIA_HEIGHT")
	_ = viper.BindEnv("media.fps", "MEDIA_FPS")
	_ = viper.BindEnv("media.zoom_max", "MEDIA_ZOOM_MAX")
	_ = viper.BindEnv("media.fade_sec", "MEDIA_FADE_SEC")
	_ = viper.BindEnv("media.crf", "MEDIA_CRF")
	_ = viper.BindEnv("media.key_interval", "MEDIA_KEY_INTERVAL")
	_ = viper.BindEnv("media.image_workers", "MEDIA_IMAGE_WORKERS")
	_ = viper.BindEnv("paths.data_dir", "DATA_DIR")
	_ = viper.BindEnv("pipeline.retry_attempts", "PIPELINE_RETRY_ATTEMPTS")
	_ = viper.BindEnv("pipeline.retry_base_ms", "PIPELINE_RETRY_BASE_MS")
	_ = viper.BindEnv("pipeline.worker_count", "PIPELINE_WORKER_COUNT")
	_ = viper.BindEnv("pipeline.default_scenes", "PIPELINE_DEFAULT_SCENES")
	_ = viper.BindEnv("pipeline.default_voice", "PIPELINE_DEFAULT_VOICE")
	_ = viper.BindEnv("sweeper.enabled", "SWEEPER_ENABLED")
	_ = viper.BindEnv("sweeper.timeout_minutes", "SWEEPER_TIMEOUT_MINUTES")
	_ = viper.BindEnv("sweeper.interval_sec", "SWEEPER_INTERVAL_SEC")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("mysql.dsn", "reelsmith:reelsmith@tcp(localhost:3306)/reelsmith?charset=utf8mb4&parseTime=True&loc=Local")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.create_per_hour", 20)
	viper.SetDefault("ratelimit.generate_per_hour", 60)

	// Text generation defaults (OpenAI-compatible chat completions)
	viper.SetDefault("textgen.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("textgen.model", "llama-3.3-70b-versatile")

	// Speech service defaults
	viper.SetDefault("speech.service_url", "http://localhost:8084")
	viper.SetDefault("speech.timeout", 300)

	// Image service defaults
	viper.SetDefault("image.base_url", "https://image.pollinations.ai")
	viper.SetDefault("image.model", "flux")
	viper.SetDefault("image.timeout", 120)

	// Canvas / encode defaults. 1080p landscape, 25 fps.
	viper.SetDefault("media.width", 1920)
	viper.SetDefault("media.height", 1080)
	viper.SetDefault("media.fps", 25)
	viper.SetDefault("media.zoom_max", 1.12)
	viper.SetDefault("media.fade_sec", 0.5)
	viper.SetDefault("media.crf", 20)
	viper.SetDefault("media.key_interval", 50)
	viper.SetDefault("media.image_workers", 4)

	viper.SetDefault("paths.data_dir", "./data")

	viper.SetDefault("pipeline.retry_attempts", 3)
	viper.SetDefault("pipeline.retry_base_ms", 2000)
	viper.SetDefault("pipeline.worker_count", 4)
	viper.SetDefault("pipeline.default_scenes", 5)
	viper.SetDefault("pipeline.default_voice", "en-US-JennyNeural")

	viper.SetDefault("sweeper.enabled", true)
	viper.SetDefault("sweeper.timeout_minutes", 60)
	viper.SetDefault("sweeper.interval_sec", 300)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		MySQL: MySQLConfig{
			DSN: viper.GetString("mysql.dsn"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			CreatePerHour:   viper.GetInt("ratelimit.create_per_hour"),
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		TextGen: TextGenConfig{
			APIKey:  viper.GetString("textgen.api_key"),
			BaseURL: viper.GetString("textgen.base_url"),
			Model:   viper.GetString("textgen.model"),
		},
		Speech: SpeechConfig{
			ServiceURL: viper.GetString("speech.service_url"),
			APIKey:     viper.GetString("speech.api_key"),
			Timeout:    viper.GetInt("speech.timeout"),
		},
		Image: ImageConfig{
			BaseURL: viper.GetString("image.base_url"),
			Model:   viper.GetString("image.model"),
			Timeout: viper.GetInt("image.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Media: MediaConfig{
			Width:        viper.GetInt("media.width"),
			Height:       viper.GetInt("media.height"),
			FPS:          viper.GetInt("media.fps"),
			ZoomMax:      viper.GetFloat64("media.zoom_max"),
			FadeSec:      viper.GetFloat64("media.fade_sec"),
			CRF:          viper.GetInt("media.crf"),
			KeyInterval:  viper.GetInt("media.key_interval"),
			ImageWorkers: viper.GetInt("media.image_workers"),
		},
		Paths: PathsConfig{
			DataDir: viper.GetString("paths.data_dir"),
		},
		Pipeline: PipelineConfig{
			RetryAttempts: viper.GetInt("pipeline.retry_attempts"),
			RetryBaseMs:   viper.GetInt("pipeline.retry_base_ms"),
			WorkerCount:   viper.GetInt("pipeline.worker_count"),
			DefaultScenes: viper.GetInt("pipeline.default_scenes"),
			DefaultVoice:  viper.GetString("pipeline.default_voice"),
		},
		Sweeper: SweeperConfig{
			Enabled:        viper.GetBool("sweeper.enabled"),
			TimeoutMinutes: viper.GetInt("sweeper.timeout_minutes"),
			IntervalSec:    viper.GetInt("sweeper.interval_sec"),
		},
	}

	return cfg, nil
}
