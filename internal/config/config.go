// Package config handles screenlate configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file (CONFIG_FILE, or ./config.yaml when present) and finally environment
// variables.
package config

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

// DefaultConfigFile is read when CONFIG_FILE is unset and the file exists.
const DefaultConfigFile = "config.yaml"

// Engine kinds.
const (
	EngineTesseract = "tesseract"
	EngineRemote    = "remote"
)

// Translator kinds.
const (
	TranslatorLibre  = "libre"
	TranslatorLocal  = "local"
	TranslatorDeepL  = "deepl"
	TranslatorGoogle = "google"
	TranslatorYandex = "yandex"
)

// EngineConfig describes one OCR engine.
type EngineConfig struct {
	ID             string  `yaml:"id"`
	Kind           string  `yaml:"kind"`
	Mode           string  `yaml:"mode"`
	Priority       int     `yaml:"priority"`
	Confidence     float64 `yaml:"confidence"`
	SecondaryCheck bool    `yaml:"secondary_check"`
	Addr           string  `yaml:"addr"`
}

type Config struct {
	HTTPAddr      string         `yaml:"http_addr"`
	LogLevel      string         `yaml:"log_level"`
	InferenceAddr string         `yaml:"inference_addr"`
	Engines       []EngineConfig `yaml:"engines"`

	SourceLang string `yaml:"source_lang"`
	TargetLang string `yaml:"target_lang"`

	Translator              string        `yaml:"translator"`
	LocalServerURL          string        `yaml:"local_server_url"`
	LocalServerPayload      string        `yaml:"local_server_payload"`
	LocalServerResponsePath string        `yaml:"local_server_response_path"`
	DeepLAPIKey             string        `yaml:"deepl_api_key"`
	DeepLFree               bool          `yaml:"deepl_free"`
	GoogleAPIKey            string        `yaml:"google_api_key"`
	YandexAPIKey            string        `yaml:"yandex_api_key"`
	YandexFolderID          string        `yaml:"yandex_folder_id"`
	TranslationTimeout      time.Duration `yaml:"translation_timeout"`

	UseLocalDB      bool   `yaml:"use_local_db"`
	LocalDBPath     string `yaml:"local_db_path"`
	LocalDBDir      string `yaml:"local_db_dir"`
	AppendToLocalDB bool   `yaml:"append_to_local_db"`

	AutoClearTexts      bool          `yaml:"auto_clear_texts"`
	AutoClearDelay      time.Duration `yaml:"auto_clear_delay"`
	CaptureRegion       string        `yaml:"capture_region"`
	SkipUnchangedFrames bool          `yaml:"skip_unchanged_frames"`

	TTSEnabled      bool   `yaml:"tts_enabled"`
	TTSURL          string `yaml:"tts_url"`
	TTSSampleRate   int    `yaml:"tts_sample_rate"`
	CopyToClipboard bool   `yaml:"copy_to_clipboard"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:                ":8000",
		LogLevel:                "debug",
		InferenceAddr:           "localhost:50051",
		Engines:                 ParseEngines([]string{EngineTesseract}),
		SourceLang:              "en",
		TargetLang:              "ru",
		Translator:              TranslatorLibre,
		LocalServerURL:          "http://127.0.0.1:5000/translate",
		LocalServerResponsePath: "translatedText",
		DeepLFree:               true,
		TranslationTimeout:      10 * time.Second,
		LocalDBPath:             "db",
		AutoClearDelay:          10 * time.Second,
		TTSURL:                  "http://127.0.0.1:5002/api/tts",
		TTSSampleRate:           22050,
	}
}

// Load resolves the configuration from defaults, the YAML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "")
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ConfigMissing, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.Wrapf(err, apperrors.ConfigInvalid, "parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.InferenceAddr = getEnv("INFERENCE_ADDR", c.InferenceAddr)
	if ids := getEnvList("OCR_ENGINES", nil); ids != nil {
		c.Engines = ParseEngines(ids)
	}
	c.SourceLang = getEnv("SOURCE_LANG", c.SourceLang)
	c.TargetLang = getEnv("TARGET_LANG", c.TargetLang)
	c.Translator = getEnv("TRANSLATOR", c.Translator)
	c.LocalServerURL = getEnv("LOCAL_SERVER_URL", c.LocalServerURL)
	c.LocalServerPayload = getEnv("LOCAL_SERVER_PAYLOAD", c.LocalServerPayload)
	c.LocalServerResponsePath = getEnv("LOCAL_SERVER_RESPONSE_PATH", c.LocalServerResponsePath)
	c.DeepLAPIKey = getEnv("DEEPL_API_KEY", c.DeepLAPIKey)
	c.DeepLFree = getEnvBool("DEEPL_FREE", c.DeepLFree)
	c.GoogleAPIKey = getEnv("GOOGLE_API_KEY", c.GoogleAPIKey)
	c.YandexAPIKey = getEnv("YANDEX_API_KEY", c.YandexAPIKey)
	c.YandexFolderID = getEnv("YANDEX_FOLDER_ID", c.YandexFolderID)
	c.TranslationTimeout = getEnvDuration("TRANSLATION_TIMEOUT", c.TranslationTimeout)
	c.UseLocalDB = getEnvBool("USE_LOCAL_DB", c.UseLocalDB)
	c.LocalDBPath = getEnv("LOCAL_DB_PATH", c.LocalDBPath)
	c.LocalDBDir = getEnv("LOCAL_DB_DIR", c.LocalDBDir)
	c.AppendToLocalDB = getEnvBool("APPEND_TO_LOCAL_DB", c.AppendToLocalDB)
	c.AutoClearTexts = getEnvBool("AUTO_CLEAR_TEXTS", c.AutoClearTexts)
	c.AutoClearDelay = getEnvDuration("AUTO_CLEAR_DELAY", c.AutoClearDelay)
	c.CaptureRegion = getEnv("CAPTURE_REGION", c.CaptureRegion)
	c.SkipUnchangedFrames = getEnvBool("SKIP_UNCHANGED_FRAMES", c.SkipUnchangedFrames)
	c.TTSEnabled = getEnvBool("TTS_ENABLED", c.TTSEnabled)
	c.TTSURL = getEnv("TTS_URL", c.TTSURL)
	c.TTSSampleRate = getEnvInt("TTS_SAMPLE_RATE", c.TTSSampleRate)
	c.CopyToClipboard = getEnvBool("COPY_TO_CLIPBOARD", c.CopyToClipboard)
}

// ParseEngines turns "kind[:mode]" entries into engine configs. Earlier
// entries get a higher priority so the first one becomes the primary engine.
func ParseEngines(ids []string) []EngineConfig {
	engines := make([]EngineConfig, 0, len(ids))
	for i, id := range ids {
		kind, mode, _ := strings.Cut(id, ":")
		engines = append(engines, EngineConfig{
			ID:         id,
			Kind:       kind,
			Mode:       mode,
			Priority:   len(ids) - i,
			Confidence: 1,
		})
	}
	return engines
}

// Validate rejects configurations the pipeline cannot be built from.
func (c *Config) Validate() error {
	switch c.Translator {
	case TranslatorLibre, TranslatorLocal, TranslatorDeepL, TranslatorGoogle, TranslatorYandex:
	default:
		return apperrors.Newf(apperrors.ConfigInvalid, "unknown translator %q", c.Translator)
	}
	if strings.TrimSpace(c.SourceLang) == "" || strings.TrimSpace(c.TargetLang) == "" {
		return apperrors.New(apperrors.ConfigInvalid, "source and target languages are required")
	}
	seen := make(map[string]bool, len(c.Engines))
	for _, e := range c.Engines {
		if e.Kind != EngineTesseract && e.Kind != EngineRemote {
			return apperrors.Newf(apperrors.ConfigInvalid, "engine %q: unknown kind %q", e.ID, e.Kind)
		}
		if seen[e.ID] {
			return apperrors.Newf(apperrors.ConfigInvalid, "duplicate engine id %q", e.ID)
		}
		seen[e.ID] = true
	}
	if _, err := c.Region(); err != nil {
		return err
	}
	if c.TranslationTimeout <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, "translation timeout must be positive")
	}
	return nil
}

// Region parses CaptureRegion ("x,y,w,h"). An empty region means the full screen.
func (c *Config) Region() (image.Rectangle, error) {
	return ParseRegion(c.CaptureRegion)
}

// ParseRegion parses an "x,y,w,h" rectangle.
func ParseRegion(s string) (image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, apperrors.Newf(apperrors.ConfigInvalid, "capture region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, apperrors.Wrapf(err, apperrors.ConfigInvalid, "capture region %q", s)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, apperrors.Newf(apperrors.ConfigInvalid, "capture region %q: empty size", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// String renders the non-secret settings for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("translator=%s pair=%s->%s engines=%d local_db=%t", c.Translator, c.SourceLang, c.TargetLang, len(c.Engines), c.UseLocalDB)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
