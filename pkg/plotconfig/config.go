// Package plotconfig defines the print configuration of a batch run and its
// "last used" persistence.
//
// A Config is supplied once per batch and not modified while the batch
// runs. The CLI loads the last used configuration, applies flags on top,
// validates it with ValidateAndSetDefaults and saves it back after a
// successful start.
package plotconfig

import (
	"math"
	"strings"

	"github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/region"
)

// Defaults for tolerances, in drawing units and millimetres.
const (
	DefaultGroupTolerance = region.DefaultGroupTolerance
	DefaultMediaTolerance = 2.0
	DefaultDevice         = "PDF"
	ScaleFit              = "Fit"
)

// Config is the print configuration of one batch.
type Config struct {
	// Device is the output device (printer or PC3-style profile) name.
	Device string `toml:"device"`
	// Paper is the default canonical media name. With ForcePaper it is
	// always used; otherwise only when no media matches the region size.
	Paper string `toml:"paper"`
	// StyleSheet is applied only when PlotStyles is on.
	StyleSheet string `toml:"style_sheet"`
	// BlockNames is the delimited list of title-block names.
	BlockNames string `toml:"block_names"`

	Order region.Order `toml:"order"`

	// Scale is "Fit" or a ratio such as "1:50", "1/50" or "0.02".
	Scale   string  `toml:"scale"`
	Center  bool    `toml:"center"`
	OffsetX float64 `toml:"offset_x"`
	OffsetY float64 `toml:"offset_y"`

	AutoRotate bool `toml:"auto_rotate"`
	ForcePaper bool `toml:"force_paper"`

	PlotStyles       bool `toml:"plot_styles"`
	Lineweights      bool `toml:"lineweights"`
	Transparency     bool `toml:"transparency"`
	ScaleLineweights bool `toml:"scale_lineweights"`

	GroupTolerance float64 `toml:"group_tolerance"`
	MediaTolerance float64 `toml:"media_tolerance"`
}

// Defaults returns the configuration used when nothing was saved yet.
func Defaults() Config {
	return Config{
		Device:         DefaultDevice,
		Order:          region.OrderHorizontal,
		Scale:          ScaleFit,
		Center:         true,
		AutoRotate:     true,
		PlotStyles:     true,
		Lineweights:    true,
		GroupTolerance: DefaultGroupTolerance,
		MediaTolerance: DefaultMediaTolerance,
	}
}

// Names returns the parsed title-block names.
func (c Config) Names() []string {
	return region.ParseNames(c.BlockNames)
}

// Fit reports whether the scale mode is scale-to-fit.
func (c Config) Fit() bool {
	return IsFit(c.Scale)
}

// SetDefaults fills empty fields with defaults. Booleans are left alone:
// false is a legitimate choice.
func (c *Config) SetDefaults() {
	if strings.TrimSpace(c.Device) == "" {
		c.Device = DefaultDevice
	}
	if strings.TrimSpace(c.Scale) == "" {
		c.Scale = ScaleFit
	}
	if c.GroupTolerance <= 0 {
		c.GroupTolerance = DefaultGroupTolerance
	}
	if c.MediaTolerance <= 0 {
		c.MediaTolerance = DefaultMediaTolerance
	}
}

// Validate checks the configuration without modifying it.
func (c Config) Validate() error {
	if err := errors.ValidateBlockNames(c.Names()); err != nil {
		return err
	}
	if strings.TrimSpace(c.Device) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "device cannot be empty")
	}
	if c.ForcePaper && strings.TrimSpace(c.Paper) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "force paper requires a paper name")
	}
	for name, v := range map[string]float64{
		"offset x":        c.OffsetX,
		"offset y":        c.OffsetY,
		"group tolerance": c.GroupTolerance,
		"media tolerance": c.MediaTolerance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be a finite number", name)
		}
	}
	if c.GroupTolerance < 0 || c.MediaTolerance < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tolerances cannot be negative")
	}
	return nil
}

// ValidateAndSetDefaults applies defaults, then validates.
func (c *Config) ValidateAndSetDefaults() error {
	c.SetDefaults()
	return c.Validate()
}
