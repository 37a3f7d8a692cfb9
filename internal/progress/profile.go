package progress

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"readingtracker/internal/models"
)

// DefaultMinutesPerPage is used for unknown or empty categories
const DefaultMinutesPerPage = 2.5

//go:embed profiles.yaml
var defaultProfilesYAML []byte

// MinuteRange is the estimated minutes a page of a category takes
type MinuteRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Midpoint returns the average of Min and Max
func (r MinuteRange) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// TimeProfiles is a lookup table of per-category reading speed
type TimeProfiles struct {
	Default    *MinuteRange
	Categories map[string]MinuteRange
}

type profilesFile struct {
	Default    *MinuteRange           `yaml:"default"`
	Categories map[string]MinuteRange `yaml:"categories"`
}

var defaultProfiles = mustParseProfiles(defaultProfilesYAML)

func mustParseProfiles(data []byte) TimeProfiles {
	p, err := LoadProfiles(bytes.NewReader(data), TimeProfiles{})
	if err != nil {
		panic(fmt.Sprintf("embedded category profiles: %v", err))
	}
	return p
}

// DefaultProfiles returns a copy of the built-in table
func DefaultProfiles() TimeProfiles {
	out := TimeProfiles{Default: defaultProfiles.Default, Categories: make(map[string]MinuteRange, len(defaultProfiles.Categories))}
	for k, v := range defaultProfiles.Categories {
		out.Categories[k] = v
	}
	return out
}

// LoadProfiles reads a YAML profile table and merges it over base.
// Keys are normalized the same way book categories are.
func LoadProfiles(r io.Reader, base TimeProfiles) (TimeProfiles, error) {
	var file profilesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return TimeProfiles{}, fmt.Errorf("failed to decode category profiles: %w", err)
	}

	out := TimeProfiles{Default: base.Default, Categories: make(map[string]MinuteRange)}
	for k, v := range base.Categories {
		out.Categories[k] = v
	}

	if file.Default != nil {
		if err := validateRange("default", *file.Default); err != nil {
			return TimeProfiles{}, err
		}
		d := *file.Default
		out.Default = &d
	}
	for name, rng := range file.Categories {
		if err := validateRange(name, rng); err != nil {
			return TimeProfiles{}, err
		}
		out.Categories[models.NormalizeCategory(name)] = rng
	}
	return out, nil
}

func validateRange(name string, r MinuteRange) error {
	if r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("invalid minute range for %q: min=%v max=%v", name, r.Min, r.Max)
	}
	return nil
}

// AverageMinutesPerPage returns the midpoint estimate for category
func (p TimeProfiles) AverageMinutesPerPage(category string) float64 {
	key := models.NormalizeCategory(category)
	if key != "" {
		if rng, ok := p.Categories[key]; ok {
			return rng.Midpoint()
		}
	}
	if p.Default != nil {
		return p.Default.Midpoint()
	}
	return DefaultMinutesPerPage
}

// AverageMinutesPerPage looks category up in the built-in table
func AverageMinutesPerPage(category string) float64 {
	return defaultProfiles.AverageMinutesPerPage(category)
}
