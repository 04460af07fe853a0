// Location graph: where the player is, and whether they may move on.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/talgya/goa1590/internal/events"
)

const (
	minConnections = 2
	maxConnections = 4

	// TransitionLock is how long, in virtual time, a completed transition blocks the next one.
	TransitionLock = 500 * time.Millisecond

	neutralHour = 12
)

// FallbackSpawn is used when neither the connection nor the target location names a spawn.
var FallbackSpawn = Point{X: 10, Y: 10}

// Standing answers the player-state questions a requirement may ask.
type Standing interface {
	Reputation(faction string) (int, bool)
	HasItem(id string) bool
	Gold() int
	Hour() int
}

// Graph holds the static locations and the player's current location.
type Graph struct {
	bus *events.Bus

	locations map[string]*Location
	order     []string
	current   string

	// Standing is consulted for requirements. Nil means reputation 0, gold 0, hour 12
	// and an empty inventory.
	Standing Standing

	lock   time.Duration
	inZone string
}

// NewGraph validates the locations and places the player at start.
func NewGraph(bus *events.Bus, locations []Location, start string) (*Graph, error) {
	g := &Graph{
		bus:       bus,
		locations: make(map[string]*Location, len(locations)),
	}
	for i := range locations {
		loc := cloneLocation(locations[i])
		if loc.ID == "" {
			return nil, errors.New("location with empty id")
		}
		if _, dup := g.locations[loc.ID]; dup {
			return nil, fmt.Errorf("duplicate location %q", loc.ID)
		}
		g.locations[loc.ID] = &loc
		g.order = append(g.order, loc.ID)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if _, ok := g.locations[start]; !ok {
		return nil, fmt.Errorf("start location %q not found", start)
	}
	g.current = start
	return g, nil
}

func (g *Graph) validate() error {
	for _, id := range g.order {
		loc := g.locations[id]
		n := len(loc.Connections)
		if n < minConnections || n > maxConnections {
			return fmt.Errorf("location %s: %d connections, want %d-%d", id, n, minConnections, maxConnections)
		}
		seen := make(map[string]bool, n)
		for i, c := range loc.Connections {
			if seen[c.ID] {
				return fmt.Errorf("location %s: duplicate connection %q", id, c.ID)
			}
			seen[c.ID] = true
			if _, ok := g.locations[c.Target]; !ok {
				return fmt.Errorf("location %s: connection %s targets unknown location %q", id, c.ID, c.Target)
			}
			for _, other := range loc.Connections[i+1:] {
				if c.Zone.Overlaps(other.Zone) {
					return fmt.Errorf("location %s: zones of %s %v and %s %v overlap", id, c.ID, c.Zone, other.ID, other.Zone)
				}
			}
		}
	}
	return nil
}

func cloneLocation(l Location) Location {
	cp := l
	cp.Connections = slices.Clone(l.Connections)
	for i, c := range cp.Connections {
		if c.Requirement != nil {
			req := *c.Requirement
			if req.Time != nil {
				w := *req.Time
				req.Time = &w
			}
			cp.Connections[i].Requirement = &req
		}
		if c.Spawn != nil {
			cp.Connections[i].Spawn = spawnAt(*c.Spawn)
		}
	}
	if l.DefaultSpawn != nil {
		cp.DefaultSpawn = spawnAt(*l.DefaultSpawn)
	}
	return cp
}

// Current returns a copy of the player's current location.
func (g *Graph) Current() Location {
	return cloneLocation(*g.locations[g.current])
}

// Location returns a copy of a location by ID.
func (g *Graph) Location(id string) (Location, bool) {
	loc, ok := g.locations[id]
	if !ok {
		slog.Warn("unknown location", "location", id)
		return Location{}, false
	}
	return cloneLocation(*loc), true
}

// Locations returns copies of every location in declaration order.
func (g *Graph) Locations() []Location {
	out := make([]Location, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, cloneLocation(*g.locations[id]))
	}
	return out
}

// Busy reports whether a transition lock is held.
func (g *Graph) Busy() bool {
	return g.lock > 0
}

// Update advances the transition lock by dt of virtual time.
func (g *Graph) Update(dt time.Duration) {
	if g.lock > 0 {
		g.lock -= dt
		if g.lock < 0 {
			g.lock = 0
		}
	}
}

// CheckTransitionZone returns the first connection of the current location whose zone holds
// the tile.
func (g *Graph) CheckTransitionZone(x, y int) (LocationConnection, bool) {
	for _, c := range g.locations[g.current].Connections {
		if c.Zone.Contains(x, y) {
			return c, true
		}
	}
	return LocationConnection{}, false
}

// UpdatePlayerPosition tracks the player's tile and publishes TransitionZoneEntered once each
// time the player steps into a zone.
func (g *Graph) UpdatePlayerPosition(x, y int) (LocationConnection, bool) {
	c, ok := g.CheckTransitionZone(x, y)
	if !ok {
		g.inZone = ""
		return c, false
	}
	if g.inZone != c.ID {
		g.inZone = c.ID
		g.bus.Publish(events.TransitionZoneEntered{Connection: c.ID, DisplayName: c.DisplayName})
	}
	return c, true
}

// CheckRequirements evaluates a requirement in order: reputation, item, gold, time window and
// the custom check. It reports the first failure.
func (g *Graph) CheckRequirements(req *TransitionRequirement) RequirementResult {
	if req == nil {
		return RequirementResult{Allowed: true}
	}

	if req.Faction != "" {
		rep := 0
		if g.Standing != nil {
			if r, ok := g.Standing.Reputation(req.Faction); ok {
				rep = r
			}
		}
		if rep < req.MinReputation {
			return RequirementResult{Reason: fmt.Sprintf("requires reputation %d with %s", req.MinReputation, req.Faction)}
		}
	}

	if req.Item != "" {
		if g.Standing == nil || !g.Standing.HasItem(req.Item) {
			return RequirementResult{Reason: fmt.Sprintf("requires %s", req.Item)}
		}
	}

	if req.MinGold > 0 {
		gold := 0
		if g.Standing != nil {
			gold = g.Standing.Gold()
		}
		if gold < req.MinGold {
			return RequirementResult{Reason: fmt.Sprintf("requires %d pardaos", req.MinGold)}
		}
	}

	if req.Time != nil {
		hour := neutralHour
		if g.Standing != nil {
			hour = g.Standing.Hour()
		}
		if !req.Time.Contains(hour) {
			return RequirementResult{Reason: fmt.Sprintf("only open %02d:00-%02d:00", req.Time.StartHour, req.Time.EndHour)}
		}
	}

	if req.Check != nil && !req.Check() {
		reason := req.CheckReason
		if reason == "" {
			reason = "requirement not met"
		}
		return RequirementResult{Reason: reason}
	}

	return RequirementResult{Allowed: true}
}

// AttemptTransition moves the player along a connection of the current location. A held lock
// rejects the attempt silently; a failed requirement publishes TransitionBlocked. Success
// publishes LocationChange and takes the transition lock.
func (g *Graph) AttemptTransition(connectionID string) RequirementResult {
	if g.Busy() {
		return RequirementResult{Reason: "transition in progress"}
	}

	from := g.locations[g.current]
	idx := slices.IndexFunc(from.Connections, func(c LocationConnection) bool { return c.ID == connectionID })
	if idx < 0 {
		slog.Warn("unknown connection", "location", from.ID, "connection", connectionID)
		return RequirementResult{Reason: fmt.Sprintf("no connection %q from %s", connectionID, from.ID)}
	}
	conn := from.Connections[idx]

	if res := g.CheckRequirements(conn.Requirement); !res.Allowed {
		slog.Info("transition blocked", "connection", conn.ID, "reason", res.Reason)
		g.bus.Publish(events.TransitionBlocked{Connection: conn.ID, Reason: res.Reason})
		return res
	}

	to := g.locations[conn.Target]
	spawn := FallbackSpawn
	switch {
	case conn.Spawn != nil:
		spawn = *conn.Spawn
	case to.DefaultSpawn != nil:
		spawn = *to.DefaultSpawn
	}

	g.current = to.ID
	g.inZone = ""
	g.lock = TransitionLock

	slog.Info("location change", "from", from.ID, "to", to.ID, "connection", conn.ID)
	g.bus.Publish(events.LocationChange{
		PreviousLocation: from.ID,
		NewLocation:      to.ID,
		Connection:       conn.ID,
		SpawnPoint:       events.Point{X: spawn.X, Y: spawn.Y},
	})
	return RequirementResult{Allowed: true}
}

// SaveData is the persisted location state.
type SaveData struct {
	Current string `json:"current"`
}

// SaveData captures the current location.
func (g *Graph) SaveData() SaveData {
	return SaveData{Current: g.current}
}

// LoadSaveData restores the current location.
func (g *Graph) LoadSaveData(d SaveData) error {
	if _, ok := g.locations[d.Current]; !ok {
		return fmt.Errorf("load location: unknown location %q", d.Current)
	}
	g.current = d.Current
	g.inZone = ""
	g.lock = 0
	return nil
}
