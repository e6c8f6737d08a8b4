// Package battle resolves a full bullpen into outcomes and skill changes.
package battle

import (
	"github.com/dom/hero-arena/internal/domain"
)

// Outcome is a participant's result in a battle.
type Outcome int

const (
	Loss Outcome = iota
	Win
	Tie
	ThirdInTwoWayTie
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Tie:
		return "tie"
	case ThirdInTwoWayTie:
		return "third_in_two_way_tie"
	default:
		return "loss"
	}
}

// Delta is the score change for the outcome.
func (o Outcome) Delta() int8 {
	switch o {
	case Win:
		return 3
	case Tie:
		return 1
	case ThirdInTwoWayTie:
		return 0
	default:
		return -1
	}
}

// Adjust is added to the base upgrade of each winning skill, indexed by an
// upgrade byte mod len(Adjust).
var Adjust = [23]int8{-2, -1, -1, -1, -1, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 2}

// upgradeCutoff rejects bytes that would bias byte % len(Adjust).
const upgradeCutoff = 253

// ByteSource supplies random bytes.
type ByteSource interface {
	Next() byte
}

// Result is one participant's result.
type Result struct {
	Pre     domain.Skills
	Post    domain.Skills
	Outcome Outcome
}

// Resolution is the full result of a battle.
type Resolution struct {
	SkillUsed         uint8
	Winner            *uint8
	WinningSkillValue uint8
	Upgrades          [domain.NumSkills]byte
	Results           [domain.BullpenSize]Result
}

// Resolve fights three heroes. The first random byte picks the comparison
// skill; the next four accepted bytes drive the winner's upgrade and are
// drawn whether or not the battle has a winner.
func Resolve(heroes [domain.BullpenSize]domain.HeroStats, src ByteSource) *Resolution {
	res := &Resolution{SkillUsed: src.Next() % domain.NumSkills}
	for i := 0; i < domain.NumSkills; {
		if b := src.Next(); b < upgradeCutoff {
			res.Upgrades[i] = b
			i++
		}
	}

	idx := res.SkillUsed
	var totals [domain.BullpenSize]int
	var candidates []int
	for i, h := range heroes {
		totals[i] = h.Current.Total()
		value := h.Current[idx]
		switch {
		case value > res.WinningSkillValue:
			res.WinningSkillValue = value
			candidates = []int{i}
		case value == res.WinningSkillValue:
			candidates = append(candidates, i)
		}
	}

	if len(candidates) > 1 {
		candidates = breakTie(candidates, totals)
	}

	if len(candidates) == 1 {
		w := candidates[0]
		winner := uint8(w)
		res.Winner = &winner
		losers := 0
		for i, t := range totals {
			if i != w {
				losers += t
			}
		}
		bonus := BaseUpgrade(2*totals[w] - losers)
		for i, h := range heroes {
			r := Result{Pre: h.Current}
			if i == w {
				r.Outcome = Win
				r.Post = Upgrade(h.Current, bonus, res.Upgrades)
			} else {
				r.Outcome = Loss
				r.Post = Regress(h.Current, h.Base)
			}
			res.Results[i] = r
		}
		return res
	}

	// no winner: nobody's skills change
	for i, h := range heroes {
		r := Result{Pre: h.Current, Post: h.Current, Outcome: ThirdInTwoWayTie}
		for _, c := range candidates {
			if c == i {
				r.Outcome = Tie
				break
			}
		}
		res.Results[i] = r
	}
	return res
}

// breakTie keeps the candidates with the highest skill total.
func breakTie(candidates []int, totals [domain.BullpenSize]int) []int {
	best := -1
	var kept []int
	for _, c := range candidates {
		switch {
		case totals[c] > best:
			best = totals[c]
			kept = []int{c}
		case totals[c] == best:
			kept = append(kept, c)
		}
	}
	return kept
}

// BaseUpgrade maps a power differential to the winner's base skill gain.
func BaseUpgrade(powerDiff int) int8 {
	switch {
	case powerDiff > 160:
		return -1
	case powerDiff > 80:
		return 0
	case powerDiff > 0:
		return 1
	case powerDiff >= -80:
		return 2
	case powerDiff >= -200:
		return 3
	default:
		return 4
	}
}

// Upgrade raises each skill by base+Adjust[b%23] when that is positive,
// capped at MaxSkill.
func Upgrade(current domain.Skills, base int8, rand [domain.NumSkills]byte) domain.Skills {
	next := current
	for i, v := range current {
		modified := int(base) + int(Adjust[int(rand[i])%len(Adjust)])
		if modified <= 0 {
			continue
		}
		skill := int(v) + modified
		if skill > domain.MaxSkill {
			skill = domain.MaxSkill
		}
		next[i] = uint8(skill)
	}
	return next
}

// Regress moves each skill halfway back toward its base, rounding toward
// the current value. Skills at or below base are left alone.
func Regress(current, base domain.Skills) domain.Skills {
	next := current
	for i, v := range current {
		if v > base[i] {
			next[i] = v - (v-base[i])/2
		}
	}
	return next
}
