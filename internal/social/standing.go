package social

import (
	"fmt"
	"log/slog"
	"maps"
)

const (
	minReputation = -100
	maxReputation = 100

	// rippleDivisor scales how far a reputation change spreads to related factions:
	// delta × relation / 100 / rippleDivisor.
	rippleDivisor = 2

	// Relationship affinity moves an NPC's prices by up to 10%.
	affinityPriceScale = 1000.0

	xpPerLevel      = 500
	maxLevel        = 10
	levelPriceShift = 0.01
)

// Standing is the player's position in Goa society: faction reputation, NPC affinity,
// trade progression, purse and inventory. It satisfies the price modifier interfaces of the
// market and the requirement source of the location graph.
type Standing struct {
	factions *Factions

	reputation map[string]int
	affinity   map[string]int // NPC ID → -100..100
	items      map[string]int
	gold       int
	experience int
	hour       int
}

// NewStanding creates a player with the factions' initial reputations and the given purse.
func NewStanding(factions *Factions, gold int) *Standing {
	s := &Standing{
		factions:   factions,
		reputation: make(map[string]int),
		affinity:   make(map[string]int),
		items:      make(map[string]int),
		gold:       gold,
		hour:       12,
	}
	if factions != nil {
		for _, id := range factions.order {
			s.reputation[id] = factions.byID[id].InitialReputation
		}
	}
	return s
}

// Reputation returns the standing with a faction. Unknown factions report false.
func (s *Standing) Reputation(faction string) (int, bool) {
	r, ok := s.reputation[faction]
	return r, ok
}

// AdjustReputation changes the standing with a faction and ripples a share of the change to
// factions it is allied with or opposed to.
func (s *Standing) AdjustReputation(faction string, delta int) error {
	if _, ok := s.reputation[faction]; !ok {
		return fmt.Errorf("adjust reputation: unknown faction %q", faction)
	}
	s.reputation[faction] = clampRep(s.reputation[faction] + delta)

	if s.factions != nil {
		for _, other := range s.factions.order {
			if other == faction {
				continue
			}
			rel := s.factions.Relation(faction, other)
			ripple := delta * rel / 100 / rippleDivisor
			if ripple != 0 {
				s.reputation[other] = clampRep(s.reputation[other] + ripple)
			}
		}
	}
	slog.Debug("reputation changed", "faction", faction, "delta", delta, "reputation", s.reputation[faction])
	return nil
}

// Affinity returns the player's relationship with an NPC.
func (s *Standing) Affinity(npcID string) int {
	return s.affinity[npcID]
}

// AdjustAffinity changes the relationship with an NPC.
func (s *Standing) AdjustAffinity(npcID string, delta int) {
	s.affinity[npcID] = clampRep(s.affinity[npcID] + delta)
}

// PriceMultiplier returns the relationship modifier for trading with an NPC. Friends charge
// less and pay more.
func (s *Standing) PriceMultiplier(npcID string, isBuying bool) float64 {
	shift := float64(s.affinity[npcID]) / affinityPriceScale
	if isBuying {
		return 1 - shift
	}
	return 1 + shift
}

// Level is the player's trade progression level.
func (s *Standing) Level() int {
	return min(s.experience/xpPerLevel, maxLevel)
}

// Experience is the total trade value the player has moved.
func (s *Standing) Experience() int {
	return s.experience
}

// TradeMultiplier returns the progression modifier: 1% better prices per level.
func (s *Standing) TradeMultiplier(isBuying bool) float64 {
	shift := float64(s.Level()) * levelPriceShift
	if isBuying {
		return 1 - shift
	}
	return 1 + shift
}

// RecordTrade adds the value of a completed trade to the player's experience.
func (s *Standing) RecordTrade(value int) {
	if value <= 0 {
		return
	}
	before := s.Level()
	s.experience += value
	if after := s.Level(); after > before {
		slog.Info("trade level up", "level", after)
	}
}

// Gold returns the player's purse.
func (s *Standing) Gold() int {
	return s.gold
}

// Spend removes gold from the purse. It fails without change when the purse is short.
func (s *Standing) Spend(amount int) bool {
	if amount < 0 || amount > s.gold {
		return false
	}
	s.gold -= amount
	return true
}

// Earn adds gold to the purse.
func (s *Standing) Earn(amount int) {
	if amount > 0 {
		s.gold += amount
	}
}

// HasItem reports whether the player carries at least one of an item.
func (s *Standing) HasItem(id string) bool {
	return s.items[id] > 0
}

// ItemCount returns how many of an item the player carries.
func (s *Standing) ItemCount(id string) int {
	return s.items[id]
}

// AddItem puts items into the inventory.
func (s *Standing) AddItem(id string, qty int) {
	if qty > 0 {
		s.items[id] += qty
	}
}

// RemoveItem takes items from the inventory. It fails without change when short.
func (s *Standing) RemoveItem(id string, qty int) bool {
	if qty <= 0 || s.items[id] < qty {
		return false
	}
	s.items[id] -= qty
	if s.items[id] == 0 {
		delete(s.items, id)
	}
	return true
}

// Inventory returns a copy of the carried items.
func (s *Standing) Inventory() map[string]int {
	return maps.Clone(s.items)
}

// Hour is the current game hour, kept in step by the simulation's hour ticks.
func (s *Standing) Hour() int {
	return s.hour
}

// SetHour records the current game hour.
func (s *Standing) SetHour(h int) {
	s.hour = h
}

func clampRep(v int) int {
	return max(minReputation, min(maxReputation, v))
}

// SaveData is the persisted player standing.
type SaveData struct {
	Reputation map[string]int `json:"reputation"`
	Affinity   map[string]int `json:"affinity"`
	Items      map[string]int `json:"items"`
	Gold       int            `json:"gold"`
	Experience int            `json:"experience"`
}

// SaveData captures the player's standing.
func (s *Standing) SaveData() SaveData {
	return SaveData{
		Reputation: maps.Clone(s.reputation),
		Affinity:   maps.Clone(s.affinity),
		Items:      maps.Clone(s.items),
		Gold:       s.gold,
		Experience: s.experience,
	}
}

// LoadSaveData restores the player's standing. Reputation for unknown factions is dropped.
func (s *Standing) LoadSaveData(d SaveData) {
	for id, r := range d.Reputation {
		if _, ok := s.reputation[id]; !ok {
			slog.Warn("saved reputation for unknown faction", "faction", id)
			continue
		}
		s.reputation[id] = clampRep(r)
	}
	s.affinity = make(map[string]int, len(d.Affinity))
	for id, a := range d.Affinity {
		s.affinity[id] = clampRep(a)
	}
	s.items = make(map[string]int, len(d.Items))
	for id, n := range d.Items {
		if n > 0 {
			s.items[id] = n
		}
	}
	s.gold = max(d.Gold, 0)
	s.experience = max(d.Experience, 0)
}
