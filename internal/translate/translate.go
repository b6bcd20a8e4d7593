// Package translate provides the translator backends and the factory that
// selects one by kind.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/screenlate/internal/config"
	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/resilience"
)

// Translator turns source-language text into target-language text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Options configures a translator.
type Options struct {
	Kind   string
	Source string
	Target string

	LocalURL          string
	LocalPayload      string
	LocalResponsePath string

	DeepLKey  string
	DeepLFree bool

	GoogleKey string

	YandexKey    string
	YandexFolder string

	Timeout time.Duration
	Client  *http.Client
}

// OptionsFrom extracts translator options from the process configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Kind:              cfg.Translator,
		Source:            cfg.SourceLang,
		Target:            cfg.TargetLang,
		LocalURL:          cfg.LocalServerURL,
		LocalPayload:      cfg.LocalServerPayload,
		LocalResponsePath: cfg.LocalServerResponsePath,
		DeepLKey:          cfg.DeepLAPIKey,
		DeepLFree:         cfg.DeepLFree,
		GoogleKey:         cfg.GoogleAPIKey,
		YandexKey:         cfg.YandexAPIKey,
		YandexFolder:      cfg.YandexFolderID,
		Timeout:           cfg.TranslationTimeout,
	}
}

// New builds the translator for opts.Kind, guarded by a circuit breaker.
func New(opts Options) (Translator, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	var t Translator
	switch opts.Kind {
	case config.TranslatorLibre, config.TranslatorLocal:
		t = &Local{
			client: client, url: opts.LocalURL, source: opts.Source, target: opts.Target,
			payload: opts.LocalPayload, responsePath: opts.LocalResponsePath,
		}
	case config.TranslatorDeepL:
		if opts.DeepLKey == "" {
			return nil, apperrors.New(apperrors.ConfigMissing, "deepl: DEEPL_API_KEY is required")
		}
		endpoint := deeplProURL
		if opts.DeepLFree {
			endpoint = deeplFreeURL
		}
		t = &DeepL{client: client, url: endpoint, key: opts.DeepLKey, source: opts.Source, target: opts.Target}
	case config.TranslatorGoogle:
		if opts.GoogleKey == "" {
			return nil, apperrors.New(apperrors.ConfigMissing, "google: GOOGLE_API_KEY is required")
		}
		t = &Google{client: client, url: googleURL, key: opts.GoogleKey, source: opts.Source, target: opts.Target}
	case config.TranslatorYandex:
		if opts.YandexKey == "" {
			return nil, apperrors.New(apperrors.ConfigMissing, "yandex: YANDEX_API_KEY is required")
		}
		t = &Yandex{client: client, url: yandexURL, key: opts.YandexKey, folder: opts.YandexFolder, source: opts.Source, target: opts.Target}
	default:
		return nil, apperrors.Newf(apperrors.ConfigInvalid, "unknown translator %q", opts.Kind)
	}
	return Guard(opts.Kind, t), nil
}

// Guarded wraps a translator with a circuit breaker and normalizes its errors.
type Guarded struct {
	inner   Translator
	breaker *resilience.Breaker
}

// Guard wraps t in a breaker named name.
func Guard(name string, t Translator) *Guarded {
	return &Guarded{inner: t, breaker: resilience.New(resilience.TranslatorConfig(name))}
}

func (g *Guarded) Translate(ctx context.Context, text string) (string, error) {
	out, err := resilience.ExecuteWithResult(g.breaker, func() (string, error) {
		return g.inner.Translate(ctx, text)
	})
	if err != nil {
		return "", apperrors.Translation(err)
	}
	return out, nil
}

// postJSON sends body as JSON and returns the raw response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	var payload []byte
	switch b := body.(type) {
	case []byte:
		payload = b
	default:
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, apperrors.Wrap(err, apperrors.TranslationFailed, "encode request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TranslationFailed, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(err, apperrors.Timeout, "translation request")
		}
		return nil, apperrors.Wrap(err, apperrors.TranslationFailed, "translation request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TranslationFailed, "read response")
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.Newf(apperrors.TranslationRateLimited, "rate limited: %s", snippet(data))
	case resp.StatusCode/100 != 2:
		return nil, apperrors.Newf(apperrors.TranslationFailed, "bad response by translator (%d): %s", resp.StatusCode, snippet(data))
	}
	return data, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

func unexpected(data []byte) error {
	return apperrors.Newf(apperrors.TranslationFailed, "unexpected response: %s", snippet(data))
}
