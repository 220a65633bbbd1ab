package compress

import (
	"fmt"
	"strconv"
	"strings"
)

// Preset names a quality/size trade-off.
type Preset string

const (
	PresetLow    Preset = "low"
	PresetMedium Preset = "medium"
	PresetHigh   Preset = "high"
)

// Settings are the encoder parameters behind a preset. A zero MaxWidth keeps the source size.
type Settings struct {
	MaxWidth int
	CRF      int
	Speed    string
}

// ParsePreset accepts a preset name, defaulting to medium when empty.
func ParsePreset(name string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PresetMedium, nil
	case PresetLow, PresetMedium, PresetHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown compression preset %q", name)
	}
}

// Settings returns the encoder parameters of the preset.
func (p Preset) Settings() Settings {
	switch p {
	case PresetLow:
		return Settings{MaxWidth: 640, CRF: 28, Speed: "fast"}
	case PresetHigh:
		return Settings{CRF: 18, Speed: "slow"}
	default:
		return Settings{MaxWidth: 854, CRF: 23, Speed: "medium"}
	}
}

// Args renders the settings as ffmpeg output options.
func (s Settings) Args() []string {
	args := []string{"-c:v", "libx264", "-crf", strconv.Itoa(s.CRF), "-preset", s.Speed}
	if s.MaxWidth > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", s.MaxWidth))
	}
	return append(args, "-c:a", "aac", "-movflags", "+faststart")
}
