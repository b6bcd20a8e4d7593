package resilience

import "time"

// Circuit breaker presets.
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Translators are paid or rate-limited services: trip early, probe soon.
	TranslatorThreshold         = 3
	TranslatorResetTimeout      = 15 * time.Second
	TranslatorHalfOpenSuccesses = 1

	// The remote OCR engine runs every tick, so it gets more slack before tripping.
	OCRThreshold         = 10
	OCRResetTimeout      = 5 * time.Second
	OCRHalfOpenSuccesses = 2
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // used in logs
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// TranslatorConfig returns the breaker settings for translator backends.
func TranslatorConfig(name string) Config {
	return Config{
		Name:              name,
		Threshold:         TranslatorThreshold,
		ResetTimeout:      TranslatorResetTimeout,
		HalfOpenSuccesses: TranslatorHalfOpenSuccesses,
	}
}

// OCRConfig returns the breaker settings for remote OCR engines.
func OCRConfig(name string) Config {
	return Config{
		Name:              name,
		Threshold:         OCRThreshold,
		ResetTimeout:      OCRResetTimeout,
		HalfOpenSuccesses: OCRHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
