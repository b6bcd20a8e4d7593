package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/resilience"
)

// Player plays mono float32 samples.
type Player interface {
	Play(samples []float32) error
	Close() error
}

// HTTP fetches raw signed 16-bit little-endian mono PCM from a TTS server
// and hands it to a Player.
type HTTP struct {
	client  *http.Client
	url     string
	lang    string
	player  Player
	breaker *resilience.Breaker
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Format   string `json:"format"`
}

// NewHTTP creates a TTS engine that posts to url and plays through player.
func NewHTTP(url, lang string, player Player) *HTTP {
	return &HTTP{
		client:  &http.Client{Timeout: 30 * time.Second},
		url:     url,
		lang:    lang,
		player:  player,
		breaker: resilience.New(resilience.Config{Name: "tts"}),
	}
}

func (h *HTTP) Speak(ctx context.Context, text string) error {
	return h.breaker.Execute(func() error {
		pcm, err := h.synthesize(ctx, text)
		if err != nil {
			return err
		}
		if err := h.player.Play(pcm); err != nil {
			return apperrors.Wrap(err, apperrors.SpeechFailed, "play speech")
		}
		return nil
	})
}

func (h *HTTP) synthesize(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ttsRequest{Text: text, Language: h.lang, Format: "s16le"})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.SpeechFailed, "encode tts request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.SpeechFailed, "build tts request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "tts request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.SpeechFailed, "tts server returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.SpeechFailed, "read tts audio")
	}
	return decodePCM16(raw), nil
}

// decodePCM16 converts s16le samples to float32 in [-1, 1). A trailing odd byte is ignored.
func decodePCM16(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float32(v) / 32768
	}
	return out
}

func (h *HTTP) Close() error {
	return h.player.Close()
}
