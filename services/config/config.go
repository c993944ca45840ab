// Package config resolves the board profile: embedded JSON per board id,
// optionally overridden by a TOML file, published retained on "config/board".
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for the board id
)

var TopicBoard = bus.T(configPrefix, "board")

// EmbeddedConfigLookup allows overriding how profiles are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Boards lists the embedded board ids.
func Boards() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

// Load decodes the embedded profile for board and applies the TOML file at
// overridePath on top of it when the path is not empty. Keys missing from
// the file keep their embedded values.
func Load(board, overridePath string) (types.BoardProfile, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return types.BoardProfile{}, errors.New("no embedded config for board: " + board)
	}
	p := types.BoardProfile{AlertPin: -1, ClearPin: -1, MainPin: -1, BgPin: -1, ServicePin: -1, SDAPin: -1, SCLPin: -1}
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.BoardProfile{}, fmt.Errorf("board %s: %w", board, err)
	}
	if p.ID == "" {
		p.ID = board
	}
	if overridePath != "" {
		if _, err := toml.DecodeFile(overridePath, &p); err != nil {
			return types.BoardProfile{}, fmt.Errorf("override %s: %w", overridePath, err)
		}
	}
	return p, validate(p)
}

func validate(p types.BoardProfile) error {
	switch {
	case p.Legacy < 0 || p.Legacy > 3:
		return fmt.Errorf("legacy mode %d out of range", p.Legacy)
	case p.MainPixels <= 0:
		return errors.New("main_pixels must be positive")
	case p.BgPixels < 0 || p.ServicePixels < 0:
		return errors.New("pixel counts must not be negative")
	case p.BrightnessFactor <= 0:
		return errors.New("brightness_factor must be positive")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name     string
	Override string
	log      zerolog.Logger
}

func NewConfigService(override string, log zerolog.Logger) *ConfigService {
	return &ConfigService{
		Name:     serviceName,
		Override: override,
		log:      log.With().Str("svc", serviceName).Logger(),
	}
}

// Publish resolves the board profile named in ctx and publishes it retained.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) (types.BoardProfile, error) {
	board, _ := ctx.Value(CtxDeviceKey).(string)
	if board == "" {
		return types.BoardProfile{}, errors.New("missing board id in context")
	}
	p, err := Load(board, s.Override)
	if err != nil {
		s.log.Error().Err(err).Str("board", board).Msg("board profile")
		return types.BoardProfile{}, err
	}
	conn.Publish(conn.NewMessage(TopicBoard, p, true))
	s.log.Info().Str("board", p.ID).Int("legacy", p.Legacy).Msg("board profile published")
	return p, nil
}
