// Package config loads tool settings with viper and turns them into the
// calculator and line-of-sight configurations.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"sightline/internal/calc"
	"sightline/internal/los"
	"sightline/internal/occlusion"
	"sightline/internal/scene"
)

// ConfigName is the file searched for when Load is given a directory
const ConfigName = "sightline"

// EnvPrefix prefixes environment overrides, e.g. SIGHTLINE_RASTER_WIDTH
const EnvPrefix = "SIGHTLINE"

// RasterSettings sizes the off-screen buffer
type RasterSettings struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Settings mirrors the configuration file
type Settings struct {
	LogLevel        string             `json:"logLevel" mapstructure:"logLevel"`
	Algorithm       string             `json:"algorithm" mapstructure:"algorithm"`
	Channel         string             `json:"channel" mapstructure:"channel"`
	Radius          float64            `json:"radius" mapstructure:"radius"`
	LargeTarget     bool               `json:"largeTarget" mapstructure:"largeTarget"`
	GridSize        float64            `json:"gridSize" mapstructure:"gridSize"`
	Threshold       float64            `json:"threshold" mapstructure:"threshold"`
	ViewerPoints    string             `json:"viewerPoints" mapstructure:"viewerPoints"`
	ViewerInset     float64            `json:"viewerInset" mapstructure:"viewerInset"`
	TargetPoints    string             `json:"targetPoints" mapstructure:"targetPoints"`
	TargetInset     float64            `json:"targetInset" mapstructure:"targetInset"`
	Blocking        occlusion.Blocking `json:"blocking" mapstructure:"blocking"`
	Raster          RasterSettings     `json:"raster" mapstructure:"raster"`
	ProneHeight     float64            `json:"proneHeight" mapstructure:"proneHeight"`
	ConstrainTarget bool               `json:"constrainTarget" mapstructure:"constrainTarget"`
	LightingTest    string             `json:"lightingTest" mapstructure:"lightingTest"`
	Cache           bool               `json:"cache" mapstructure:"cache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("algorithm", string(calc.AlgorithmPoints))
	v.SetDefault("channel", "sight")
	v.SetDefault("radius", 0)
	v.SetDefault("largeTarget", false)
	v.SetDefault("gridSize", 0)
	v.SetDefault("threshold", 0)
	v.SetDefault("viewerPoints", "center/top")
	v.SetDefault("viewerInset", 0)
	v.SetDefault("targetPoints", "center,corners/mid")
	v.SetDefault("targetInset", 0)

	v.SetDefault("blocking.walls", true)
	v.SetDefault("blocking.tiles", true)
	v.SetDefault("blocking.regions", true)
	v.SetDefault("blocking.tokens.dead", false)
	v.SetDefault("blocking.tokens.live", true)
	v.SetDefault("blocking.tokens.prone", true)

	v.SetDefault("raster.width", calc.DefaultRasterSize)
	v.SetDefault("raster.height", calc.DefaultRasterSize)
	v.SetDefault("proneHeight", occlusion.DefaultProneHeight)
	v.SetDefault("constrainTarget", false)
	v.SetDefault("lightingTest", "off")
	v.SetDefault("cache", true)
}

// Defaults returns the settings used when no file is given
func Defaults() *Settings {
	v := newViper()
	s := &Settings{}
	// defaults always decode
	_ = v.Unmarshal(s)
	return s
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads a YAML or JSON file. path may name the file itself or a
// directory holding sightline.yaml / sightline.json.
func Load(path string) (*Settings, error) {
	v := newViper()

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(path)
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return s, nil
}

// CalcConfig translates the settings for the calculators. Bad values fall
// back to their defaults with a warning.
func (s *Settings) CalcConfig(log zerolog.Logger) calc.Config {
	cfg := calc.DefaultConfig()

	ch, ok := scene.ParseChannel(strings.ToLower(strings.TrimSpace(s.Channel)))
	if !ok {
		log.Warn().Str("channel", s.Channel).Msg("unknown channel, using sight")
	}
	cfg.Channel = ch
	cfg.Blocking = s.Blocking
	cfg.LargeTarget = s.LargeTarget
	cfg.GridSize = max(s.GridSize, 0)
	cfg.Radius = max(s.Radius, 0)
	cfg.TargetInset = s.TargetInset
	cfg.ConstrainTarget = s.ConstrainTarget

	lt, ok := calc.ParseLightingTest(s.LightingTest)
	if !ok {
		log.Warn().Str("lightingTest", s.LightingTest).Msg("unknown lighting test, using off")
	}
	cfg.LightingTest = lt

	if s.TargetPoints != "" {
		sel, err := scene.ParsePointSelection(s.TargetPoints, scene.DepthMid)
		if err != nil {
			log.Warn().Err(err).Str("targetPoints", s.TargetPoints).Msg("bad target points, using center only")
		}
		cfg.TargetPoints = sel
	}

	if s.ProneHeight > 0 && s.ProneHeight <= 1 {
		cfg.ProneHeight = s.ProneHeight
	} else {
		log.Warn().Float64("proneHeight", s.ProneHeight).Msg("prone height outside (0, 1], using default")
	}

	if s.Raster.Width > 0 {
		cfg.Raster.Width = s.Raster.Width
	}
	if s.Raster.Height > 0 {
		cfg.Raster.Height = s.Raster.Height
	}
	return cfg
}

// LOSConfig translates the settings for a viewer
func (s *Settings) LOSConfig(log zerolog.Logger) los.Config {
	cfg := los.DefaultConfig()
	cfg.Calc = s.CalcConfig(log)
	cfg.ViewerInset = s.ViewerInset
	cfg.Threshold = min(max(s.Threshold, 0), 1)

	if s.ViewerPoints != "" {
		sel, err := scene.ParsePointSelection(s.ViewerPoints, scene.DepthTop)
		if err != nil {
			log.Warn().Err(err).Str("viewerPoints", s.ViewerPoints).Msg("bad viewer points, using center")
			sel = los.DefaultViewerPoints
		}
		cfg.ViewerPoints = sel
	}
	return cfg
}

// AlgorithmKey resolves the configured strategy
func (s *Settings) AlgorithmKey(log zerolog.Logger) calc.Algorithm {
	return calc.ParseAlgorithm(s.Algorithm, log)
}
