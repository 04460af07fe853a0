// Ship archetypes calling at Goa.
package harbor

import "github.com/talgya/goa1590/internal/calendar"

// CargoRange is a manifest line: a good and the quantity range a ship usually carries.
type CargoRange struct {
	GoodID string `json:"good_id"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// ShipType is a static catalog entry for a kind of ship.
type ShipType struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Origin             string       `json:"origin"`
	OceanGoing         bool         `json:"ocean_going"`
	Cargo              []CargoRange `json:"cargo"`
	ArrivalProbability float64      `json:"arrival_probability"`
	StayMin            int          `json:"stay_min"`
	StayMax            int          `json:"stay_max"`
	Exports            []string     `json:"exports"`
	DemandPremium      float64      `json:"demand_premium"`
	Names              []string     `json:"names"`
}

// Seasonal arrival penalties.
const (
	monsoonOceanPenalty   = 0.05
	monsoonCoastalPenalty = 0.2
	shoulderPenalty       = 0.7
)

// ShipTypes returns the four archetypes trading at Goa.
func ShipTypes() []ShipType {
	return []ShipType{
		{
			ID: "portuguese_carrack", Name: "Portuguese Carrack", Origin: "Lisbon", OceanGoing: true,
			Cargo: []CargoRange{
				{GoodID: "good_wine", Min: 10, Max: 20},
				{GoodID: "good_silver", Min: 5, Max: 10},
			},
			ArrivalProbability: 0.15, StayMin: 2, StayMax: 4,
			Exports:       []string{"good_pepper", "good_cinnamon", "good_cloves"},
			DemandPremium: 1.5,
			Names:         []string{"Madre de Deus", "São Tomé", "Santa Cruz", "Cinco Chagas"},
		},
		{
			ID: "chinese_junk", Name: "Chinese Junk", Origin: "Macau", OceanGoing: true,
			Cargo: []CargoRange{
				{GoodID: "good_silk", Min: 8, Max: 15},
				{GoodID: "good_porcelain", Min: 5, Max: 10},
				{GoodID: "good_tea", Min: 10, Max: 20},
			},
			ArrivalProbability: 0.08, StayMin: 3, StayMax: 6,
			Exports:       []string{"good_pepper", "good_sandalwood"},
			DemandPremium: 1.3,
			Names:         []string{"Golden Carp", "Jade Wind", "Eastern Pearl"},
		},
		{
			ID: "arab_dhow", Name: "Arab Dhow", Origin: "Hormuz",
			Cargo: []CargoRange{
				{GoodID: "good_frankincense", Min: 5, Max: 12},
				{GoodID: "good_pearls", Min: 2, Max: 6},
			},
			ArrivalProbability: 0.20, StayMin: 1, StayMax: 3,
			Exports:       []string{"good_rice", "good_ginger", "good_cotton"},
			DemandPremium: 1.2,
			Names:         []string{"Fath al-Khair", "Al-Najma", "Sabah"},
		},
		{
			ID: "gujarati_pattamar", Name: "Gujarati Pattamar", Origin: "Cambay",
			Cargo: []CargoRange{
				{GoodID: "good_cotton", Min: 10, Max: 25},
				{GoodID: "good_indigo", Min: 5, Max: 15},
			},
			ArrivalProbability: 0.25, StayMin: 1, StayMax: 2,
			Exports:       []string{"good_pepper", "good_rice"},
			DemandPremium: 1.15,
			Names:         []string{"Lakshmi", "Ganga Prasad", "Shri Ram"},
		},
	}
}

// SeasonPenalty is the seasonal arrival multiplier for a ship.
func SeasonPenalty(st ShipType, season calendar.Season) float64 {
	switch season {
	case calendar.SeasonMonsoon:
		if st.OceanGoing {
			return monsoonOceanPenalty
		}
		return monsoonCoastalPenalty
	case calendar.SeasonPreMonsoon, calendar.SeasonPostMonsoon:
		return shoulderPenalty
	default:
		return 1
	}
}

// ArrivalProbability is the chance a ship of this type arrives on a given day.
func ArrivalProbability(st ShipType, season calendar.Season, tradeModifier float64) float64 {
	return st.ArrivalProbability * tradeModifier * SeasonPenalty(st, season)
}
