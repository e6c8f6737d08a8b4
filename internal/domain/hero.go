package domain

// NumSkills is the number of skill dimensions every hero has.
const NumSkills = 4

// Skill bounds
const (
	MinSkill = 1
	MaxSkill = 100
)

// Skills is a hero's skill vector.
type Skills [NumSkills]uint8

// Total returns the sum of all skills.
func (s Skills) Total() int {
	total := 0
	for _, v := range s {
		total += int(v)
	}
	return total
}

// HeroStats is the secret attribute payload kept by the asset registry.
type HeroStats struct {
	// Base holds the skills at time of minting
	Base Skills `json:"base"`
	// Current holds the skills after every battle so far
	Current Skills `json:"current"`
}

// TokenInfo identifies an asset and the registry version it came from.
type TokenInfo struct {
	TokenID string `json:"tokenId"`
	Version uint8  `json:"version"`
}

// WaitingHero is a participant sitting in the bullpen.
type WaitingHero struct {
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	TokenInfo TokenInfo `json:"tokenInfo"`
	Stats     HeroStats `json:"stats"`
}
