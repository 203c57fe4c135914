package session

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrInvalidSetting is returned when a setting value is rejected. The
// previous settings are kept.
var ErrInvalidSetting = errors.New("invalid setting")

// Setting keys accepted by UpdateSettings.
const (
	KeyModel        = "model"
	KeyTemperature  = "temperature"
	KeyMaxTokens    = "max_tokens"
	KeyShowThinking = "show_thinking"
)

// User-settable temperature range.
const (
	MinUserTemperature = 0.1
	MaxUserTemperature = 1.0
	// MaxTemperature bounds any temperature, including catalog ones.
	MaxTemperature = 2.0
)

// Settings are the per-session model parameters.
type Settings struct {
	SessionID    string  `mapstructure:"-"`
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	ShowThinking bool    `mapstructure:"show_thinking"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings(sessionID string) Settings {
	return Settings{
		SessionID:    sessionID,
		Model:        "llama3.2",
		Temperature:  0.2,
		MaxTokens:    10000,
		ShowThinking: false,
	}
}

// Validate checks every field of s.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("session: model is required: %w", ErrInvalidSetting)
	}
	if !(s.Temperature > 0 && s.Temperature <= MaxTemperature) {
		return fmt.Errorf("session: temperature %v out of range (0, %v]: %w", s.Temperature, MaxTemperature, ErrInvalidSetting)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("session: max tokens must be positive, got %d: %w", s.MaxTokens, ErrInvalidSetting)
	}
	return nil
}

// apply decodes partial over a copy of s and validates the fields it names.
// Values are weakly typed, so "0.5" decodes into a float. Keys match
// exactly and the merged result is validated as a whole.
func (s Settings) apply(partial map[string]any) (Settings, error) {
	next := s

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &next,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		MatchName:        func(key, field string) bool { return key == field },
		DecodeHook:       decimalInt,
	})
	if err != nil {
		return s, fmt.Errorf("session: %w", err)
	}
	if err := dec.Decode(partial); err != nil {
		return s, fmt.Errorf("session: %w: %w", ErrInvalidSetting, err)
	}

	if _, ok := partial[KeyModel]; ok {
		next.Model = strings.TrimSpace(next.Model)
		if next.Model == "" {
			return s, fmt.Errorf("session: model is required: %w", ErrInvalidSetting)
		}
	}
	if _, ok := partial[KeyTemperature]; ok {
		if !(next.Temperature >= MinUserTemperature && next.Temperature <= MaxUserTemperature) {
			return s, fmt.Errorf("session: temperature must be between %v and %v: %w", MinUserTemperature, MaxUserTemperature, ErrInvalidSetting)
		}
	}
	if _, ok := partial[KeyMaxTokens]; ok {
		if next.MaxTokens <= 0 {
			return s, fmt.Errorf("session: max tokens must be a positive integer: %w", ErrInvalidSetting)
		}
	}

	if err := next.Validate(); err != nil {
		return s, err
	}

	return next, nil
}

// decimalInt parses strings bound for integer fields in base 10 only, so
// "010" is ten and "0x10" is rejected.
func decimalInt(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Int {
		return data, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(data.(string)))
	if err != nil {
		return nil, fmt.Errorf("%q is not a decimal integer", data)
	}
	return n, nil
}
