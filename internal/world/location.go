package world

import "fmt"

// Point is a tile coordinate on a location's map.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned tile rectangle. Max edges are exclusive.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Contains reports whether the tile lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Overlaps reports whether two rectangles share any tile.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// TimeWindow is an hour range [StartHour, EndHour). A start after the end wraps past midnight.
type TimeWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Contains reports whether the hour falls in the window.
func (w TimeWindow) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// TransitionRequirement gates a connection. Zero fields are not checked.
type TransitionRequirement struct {
	Faction       string      `json:"faction,omitempty"`
	MinReputation int         `json:"min_reputation,omitempty"`
	Item          string      `json:"item,omitempty"`
	MinGold       int         `json:"min_gold,omitempty"`
	Time          *TimeWindow `json:"time,omitempty"`

	// Check is an arbitrary condition; CheckReason is reported when it fails.
	Check       func() bool `json:"-"`
	CheckReason string      `json:"check_reason,omitempty"`
}

// LocationConnection is an outbound edge of a location.
type LocationConnection struct {
	ID          string                 `json:"id"`
	Target      string                 `json:"target"`
	DisplayName string                 `json:"display_name"`
	Zone        Rect                   `json:"zone"`
	Requirement *TransitionRequirement `json:"requirement,omitempty"`
	Spawn       *Point                 `json:"spawn,omitempty"` // overrides the target's default spawn
}

// Location is a node of the world graph.
type Location struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	MapRef       string               `json:"map_ref"`
	Connections  []LocationConnection `json:"connections"`
	Faction      string               `json:"faction,omitempty"` // territory, if any
	Outdoor      bool                 `json:"outdoor,omitempty"` // open-air stalls, shut by heavy rain
	DefaultSpawn *Point               `json:"default_spawn,omitempty"`
}

// RequirementResult is the outcome of a requirement or transition check.
type RequirementResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Map edges shared by the default Goa maps (40×30 tiles).
var (
	westEdge  = Rect{X: 0, Y: 12, W: 2, H: 6}
	eastEdge  = Rect{X: 38, Y: 12, W: 2, H: 6}
	northEdge = Rect{X: 17, Y: 0, W: 6, H: 2}
	southEdge = Rect{X: 17, Y: 28, W: 6, H: 2}

	westSpawn  = Point{X: 3, Y: 15}
	eastSpawn  = Point{X: 36, Y: 15}
	northSpawn = Point{X: 20, Y: 3}
	southSpawn = Point{X: 20, Y: 26}
)

// DefaultLocations returns the seven locations of the city of Goa.
func DefaultLocations() []Location {
	return []Location{
		{
			ID: "ribeira_grande", Name: "Ribeira Grande", MapRef: "maps/ribeira_grande.json", Outdoor: true,
			Faction: "portuguese_crown", DefaultSpawn: &Point{X: 20, Y: 20},
			Connections: []LocationConnection{
				{ID: "ribeira_to_rua", Target: "rua_direita", DisplayName: "Rua Direita", Zone: northEdge, Spawn: spawnAt(southSpawn)},
				{ID: "ribeira_to_alfandega", Target: "alfandega", DisplayName: "Alfândega", Zone: eastEdge, Spawn: spawnAt(westSpawn),
					Requirement: &TransitionRequirement{Faction: "portuguese_crown", MinReputation: -19}},
				{ID: "ribeira_to_wharf", Target: "smugglers_wharf", DisplayName: "Smugglers' Wharf", Zone: westEdge, Spawn: spawnAt(eastSpawn),
					Requirement: &TransitionRequirement{Time: &TimeWindow{StartHour: 20, EndHour: 5}}},
			},
		},
		{
			ID: "rua_direita", Name: "Rua Direita", MapRef: "maps/rua_direita.json",
			DefaultSpawn: &Point{X: 20, Y: 15},
			Connections: []LocationConnection{
				{ID: "rua_to_ribeira", Target: "ribeira_grande", DisplayName: "Ribeira Grande", Zone: southEdge, Spawn: spawnAt(northSpawn)},
				{ID: "rua_to_se", Target: "se_square", DisplayName: "Sé Cathedral Square", Zone: northEdge, Spawn: spawnAt(southSpawn)},
				{ID: "rua_to_bazaar", Target: "bazaar", DisplayName: "Bazaar", Zone: eastEdge, Spawn: spawnAt(westSpawn)},
				{ID: "rua_to_taverna", Target: "taverna", DisplayName: "Taverna", Zone: westEdge, Spawn: spawnAt(eastSpawn)},
			},
		},
		{
			ID: "se_square", Name: "Sé Cathedral Square", MapRef: "maps/se_square.json",
			Faction: "church", DefaultSpawn: &Point{X: 20, Y: 24},
			Connections: []LocationConnection{
				{ID: "se_to_rua", Target: "rua_direita", DisplayName: "Rua Direita", Zone: southEdge, Spawn: spawnAt(northSpawn)},
				{ID: "se_to_bazaar", Target: "bazaar", DisplayName: "Bazaar", Zone: eastEdge, Spawn: spawnAt(northSpawn)},
			},
		},
		{
			ID: "bazaar", Name: "Bazaar", MapRef: "maps/bazaar.json", Outdoor: true,
			Faction: "saraswat_merchants", DefaultSpawn: &Point{X: 18, Y: 15},
			Connections: []LocationConnection{
				{ID: "bazaar_to_rua", Target: "rua_direita", DisplayName: "Rua Direita", Zone: westEdge, Spawn: spawnAt(eastSpawn)},
				{ID: "bazaar_to_se", Target: "se_square", DisplayName: "Sé Cathedral Square", Zone: northEdge, Spawn: spawnAt(eastSpawn)},
				{ID: "bazaar_to_alfandega", Target: "alfandega", DisplayName: "Alfândega", Zone: southEdge, Spawn: spawnAt(northSpawn)},
			},
		},
		{
			ID: "alfandega", Name: "Alfândega", MapRef: "maps/alfandega.json",
			Faction: "portuguese_crown", DefaultSpawn: &Point{X: 20, Y: 15},
			Connections: []LocationConnection{
				{ID: "alfandega_to_ribeira", Target: "ribeira_grande", DisplayName: "Ribeira Grande", Zone: westEdge, Spawn: spawnAt(eastSpawn)},
				{ID: "alfandega_to_bazaar", Target: "bazaar", DisplayName: "Bazaar", Zone: northEdge, Spawn: spawnAt(southSpawn)},
			},
		},
		{
			ID: "taverna", Name: "Taverna", MapRef: "maps/taverna.json",
			DefaultSpawn: &Point{X: 10, Y: 15},
			Connections: []LocationConnection{
				{ID: "taverna_to_rua", Target: "rua_direita", DisplayName: "Rua Direita", Zone: eastEdge, Spawn: spawnAt(westSpawn)},
				{ID: "taverna_to_wharf", Target: "smugglers_wharf", DisplayName: "Back Door", Zone: southEdge, Spawn: spawnAt(northSpawn),
					Requirement: &TransitionRequirement{Faction: "smugglers", MinReputation: 0}},
			},
		},
		{
			ID: "smugglers_wharf", Name: "Smugglers' Wharf", MapRef: "maps/smugglers_wharf.json",
			Faction: "smugglers", DefaultSpawn: &Point{X: 20, Y: 10},
			Connections: []LocationConnection{
				{ID: "wharf_to_taverna", Target: "taverna", DisplayName: "Taverna", Zone: northEdge, Spawn: spawnAt(southSpawn)},
				{ID: "wharf_to_ribeira", Target: "ribeira_grande", DisplayName: "Ribeira Grande", Zone: eastEdge, Spawn: spawnAt(westSpawn)},
			},
		},
	}
}

func spawnAt(p Point) *Point {
	return &p
}
