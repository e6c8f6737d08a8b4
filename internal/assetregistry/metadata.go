// Package assetregistry talks to the external card contracts that hold the
// heroes: the blocking private metadata query and the fire-and-forget
// effects delivered from the outbox.
package assetregistry

import (
	"encoding/json"
	"fmt"

	"github.com/dom/hero-arena/internal/domain"
)

// Metadata is a token's private metadata. Image carries the hero stats as
// a JSON string.
type Metadata struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// rawStats accepts any JSON numbers so length and range are checked here
// rather than silently truncated by the decoder.
type rawStats struct {
	Base    []int `json:"base"`
	Current []int `json:"current"`
}

// DecodeStats parses the hero stats out of private metadata.
func DecodeStats(m *Metadata) (domain.HeroStats, error) {
	var stats domain.HeroStats
	if m == nil || m.Image == nil {
		return stats, domain.ErrMissingHeroStats
	}

	var raw rawStats
	if err := json.Unmarshal([]byte(*m.Image), &raw); err != nil {
		return stats, fmt.Errorf("%w: %v", domain.ErrInvalidHeroStats, err)
	}
	base, err := toSkills(raw.Base)
	if err != nil {
		return stats, fmt.Errorf("%w: base: %v", domain.ErrInvalidHeroStats, err)
	}
	current, err := toSkills(raw.Current)
	if err != nil {
		return stats, fmt.Errorf("%w: current: %v", domain.ErrInvalidHeroStats, err)
	}
	stats.Base = base
	stats.Current = current
	return stats, nil
}

func toSkills(values []int) (domain.Skills, error) {
	var s domain.Skills
	if len(values) != domain.NumSkills {
		return s, fmt.Errorf("expected %d skills, got %d", domain.NumSkills, len(values))
	}
	for i, v := range values {
		if v < domain.MinSkill || v > domain.MaxSkill {
			return s, fmt.Errorf("skill %d out of range: %d", i, v)
		}
		s[i] = uint8(v)
	}
	return s, nil
}

// EncodeStats renders stats as {"base":[..],"current":[..]}.
func EncodeStats(stats domain.HeroStats) (string, error) {
	b, err := json.Marshal(stats)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StatsMetadata builds the private metadata written back after a battle.
func StatsMetadata(name string, stats domain.HeroStats) (*Metadata, error) {
	image, err := EncodeStats(stats)
	if err != nil {
		return nil, fmt.Errorf("encode hero stats: %w", err)
	}
	return &Metadata{Name: &name, Image: &image}, nil
}

// HeroName returns the metadata name, or "" when unset.
func (m *Metadata) HeroName() string {
	if m == nil || m.Name == nil {
		return ""
	}
	return *m.Name
}
