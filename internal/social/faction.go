// Factions: the powers of Goa whose goodwill sets prices and opens doors.
package social

import "slices"

// Faction IDs.
const (
	PortugueseCrown   = "portuguese_crown"
	Church            = "church"
	SaraswatMerchants = "saraswat_merchants"
	GujaratiBanias    = "gujarati_banias"
	ArabTraders       = "arab_traders"
	ChineseMerchants  = "chinese_merchants"
	Smugglers         = "smugglers"
)

// FactionKind categorizes the nature of a faction.
type FactionKind uint8

const (
	FactionPolitical FactionKind = iota // Crown and its officers
	FactionEconomic                     // Trading houses
	FactionReligious                    // The Church and the Inquisition
	FactionCriminal                     // Underground
)

// String returns the wire name of the kind.
func (k FactionKind) String() string {
	switch k {
	case FactionPolitical:
		return "political"
	case FactionEconomic:
		return "economic"
	case FactionReligious:
		return "religious"
	case FactionCriminal:
		return "criminal"
	default:
		return "unknown"
	}
}

// Faction is an organization the player can stand well or badly with.
type Faction struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Kind FactionKind `json:"kind"`

	// Relations with other factions (faction ID → -100 to +100).
	Relations map[string]int `json:"relations"`

	// Starting player reputation with this faction.
	InitialReputation int `json:"initial_reputation"`
}

// Factions is the set of factions keyed by ID, with a stable display order.
type Factions struct {
	byID  map[string]*Faction
	order []string
}

// SeedFactions creates the factions of 1590 Goa and their mutual relations.
func SeedFactions() *Factions {
	f := &Factions{byID: make(map[string]*Faction)}
	f.add(&Faction{ID: PortugueseCrown, Name: "Estado da Índia", Kind: FactionPolitical})
	f.add(&Faction{ID: Church, Name: "Holy Office", Kind: FactionReligious})
	f.add(&Faction{ID: SaraswatMerchants, Name: "Saraswat Merchants", Kind: FactionEconomic, InitialReputation: 10})
	f.add(&Faction{ID: GujaratiBanias, Name: "Gujarati Banias", Kind: FactionEconomic})
	f.add(&Faction{ID: ArabTraders, Name: "Arab Traders", Kind: FactionEconomic})
	f.add(&Faction{ID: ChineseMerchants, Name: "Chinese Merchants", Kind: FactionEconomic})
	f.add(&Faction{ID: Smugglers, Name: "Wharf Smugglers", Kind: FactionCriminal, InitialReputation: -10})

	f.setRelation(PortugueseCrown, Church, 60)
	f.setRelation(PortugueseCrown, SaraswatMerchants, 10)
	f.setRelation(PortugueseCrown, GujaratiBanias, 0)
	f.setRelation(PortugueseCrown, ArabTraders, -40)
	f.setRelation(PortugueseCrown, ChineseMerchants, 10)
	f.setRelation(PortugueseCrown, Smugglers, -60)
	f.setRelation(Church, SaraswatMerchants, -20)
	f.setRelation(Church, ArabTraders, -50)
	f.setRelation(Church, Smugglers, -40)
	f.setRelation(SaraswatMerchants, GujaratiBanias, 30)
	f.setRelation(SaraswatMerchants, ArabTraders, 10)
	f.setRelation(GujaratiBanias, ArabTraders, 20)
	f.setRelation(GujaratiBanias, ChineseMerchants, 10)
	f.setRelation(ArabTraders, Smugglers, 20)
	f.setRelation(ChineseMerchants, Smugglers, -10)
	return f
}

func (f *Factions) add(fac *Faction) {
	fac.Relations = make(map[string]int)
	f.byID[fac.ID] = fac
	f.order = append(f.order, fac.ID)
}

// setRelation sets a symmetric relation between two factions.
func (f *Factions) setRelation(a, b string, v int) {
	fa, fb := f.byID[a], f.byID[b]
	if fa == nil || fb == nil {
		return
	}
	fa.Relations[b] = v
	fb.Relations[a] = v
}

// Get returns a copy of a faction.
func (f *Factions) Get(id string) (Faction, bool) {
	fac, ok := f.byID[id]
	if !ok {
		return Faction{}, false
	}
	cp := *fac
	cp.Relations = make(map[string]int, len(fac.Relations))
	for k, v := range fac.Relations {
		cp.Relations[k] = v
	}
	return cp, true
}

// Has reports whether the faction exists.
func (f *Factions) Has(id string) bool {
	_, ok := f.byID[id]
	return ok
}

// IDs returns every faction ID in display order.
func (f *Factions) IDs() []string {
	return slices.Clone(f.order)
}

// Relation returns the relation between two factions, 0 when unrelated.
func (f *Factions) Relation(a, b string) int {
	fac, ok := f.byID[a]
	if !ok {
		return 0
	}
	return fac.Relations[b]
}
