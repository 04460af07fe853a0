package events

// Kind names an event channel. The string form is used on the wire and in the journal.
type Kind string

const (
	KindNewDay                Kind = "newDay"
	KindHourChange            Kind = "hourChange"
	KindMinuteChange          Kind = "minuteChange"
	KindSeasonChange          Kind = "seasonChange"
	KindWeatherChange         Kind = "weatherChange"
	KindLightning             Kind = "lightning"
	KindThunder               Kind = "thunder"
	KindShipArrival           Kind = "ship_arrival"
	KindShipDeparture         Kind = "ship_departure"
	KindCargoUnloaded         Kind = "cargo_unloaded"
	KindCargoDemand           Kind = "cargo_demand"
	KindCargoDemandExpired    Kind = "cargo_demand_expired"
	KindMarketUpdate          Kind = "marketUpdate"
	KindNPCTrade              Kind = "npcTrade"
	KindLocationChange        Kind = "locationChange"
	KindTransitionBlocked     Kind = "transitionBlocked"
	KindTransitionZoneEntered Kind = "transitionZoneEntered"
)

// Event is the closed set of simulation events. Only types in this package implement it.
type Event interface {
	Kind() Kind
	sealed()
}

// Cargo is a quantity of one good carried by a ship.
type Cargo struct {
	GoodID   string `json:"good_id"`
	Quantity int    `json:"quantity"`
}

// Point is a tile coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type NewDay struct {
	DayCount int `json:"day_count"`
}

type HourChange struct {
	Hour int `json:"hour"`
}

type MinuteChange struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type SeasonChange struct {
	Previous      string  `json:"previous"`
	Current       string  `json:"current"`
	Description   string  `json:"description"`
	TradeModifier float64 `json:"trade_modifier"`
}

type WeatherChange struct {
	Previous  string  `json:"previous"`
	Current   string  `json:"current"`
	Intensity float64 `json:"intensity"`
	Season    string  `json:"season"`
}

// Lightning is a flash; its brightness decays over the following frames.
type Lightning struct {
	Intensity float64 `json:"intensity"`
}

// Thunder follows a lightning flash after a sound-travel delay.
type Thunder struct {
	DelayMs   int     `json:"delay_ms"`
	Intensity float64 `json:"intensity"`
}

type ShipArrival struct {
	EventID   string  `json:"event_id"`
	ShipType  string  `json:"ship_type"`
	ShipName  string  `json:"ship_name"`
	Origin    string  `json:"origin"`
	Day       int     `json:"day"`
	StayDays  int     `json:"stay_days"`
	DepartDay int     `json:"depart_day"`
	Cargo     []Cargo `json:"cargo"`
}

type ShipDeparture struct {
	EventID  string `json:"event_id"`
	ShipType string `json:"ship_type"`
	ShipName string `json:"ship_name"`
	Day      int    `json:"day"`
	Reason   string `json:"reason"` // "scheduled" or "expired"
}

// CargoUnloaded tells the market a ship's hold has reached the quay.
type CargoUnloaded struct {
	EventID       string  `json:"event_id"`
	ShipType      string  `json:"ship_type"`
	Goods         []Cargo `json:"goods"`
	PriceModifier float64 `json:"price_modifier"`
	ExpiryDay     int     `json:"expiry_day"`
}

// CargoDemand is a departing ship offering above-market prices for a good.
type CargoDemand struct {
	EventID   string `json:"event_id"`
	ShipType  string `json:"ship_type"`
	GoodID    string `json:"good_id"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	ExpiryDay int    `json:"expiry_day"`
}

type CargoDemandExpired struct {
	EventID   string `json:"event_id"`
	GoodID    string `json:"good_id"`
	Remaining int    `json:"remaining"`
}

// GoodSummary is one row of a market update.
type GoodSummary struct {
	GoodID string `json:"good_id"`
	Price  int    `json:"price"`
	Trend  string `json:"trend"`
	Supply int    `json:"supply"`
	Demand int    `json:"demand"`
}

type MarketUpdate struct {
	Summary []GoodSummary `json:"summary"`
}

type NPCTrade struct {
	Trader   string `json:"trader"`
	Action   string `json:"action"` // "buy" or "sell"
	GoodID   string `json:"good_id"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

type LocationChange struct {
	PreviousLocation string `json:"previous_location"`
	NewLocation      string `json:"new_location"`
	Connection       string `json:"connection"`
	SpawnPoint       Point  `json:"spawn_point"`
}

type TransitionBlocked struct {
	Connection string `json:"connection"`
	Reason     string `json:"reason"`
}

type TransitionZoneEntered struct {
	Connection  string `json:"connection"`
	DisplayName string `json:"display_name"`
}

func (NewDay) Kind() Kind                { return KindNewDay }
func (HourChange) Kind() Kind            { return KindHourChange }
func (MinuteChange) Kind() Kind          { return KindMinuteChange }
func (SeasonChange) Kind() Kind          { return KindSeasonChange }
func (WeatherChange) Kind() Kind         { return KindWeatherChange }
func (Lightning) Kind() Kind             { return KindLightning }
func (Thunder) Kind() Kind               { return KindThunder }
func (ShipArrival) Kind() Kind           { return KindShipArrival }
func (ShipDeparture) Kind() Kind         { return KindShipDeparture }
func (CargoUnloaded) Kind() Kind         { return KindCargoUnloaded }
func (CargoDemand) Kind() Kind           { return KindCargoDemand }
func (CargoDemandExpired) Kind() Kind    { return KindCargoDemandExpired }
func (MarketUpdate) Kind() Kind          { return KindMarketUpdate }
func (NPCTrade) Kind() Kind              { return KindNPCTrade }
func (LocationChange) Kind() Kind        { return KindLocationChange }
func (TransitionBlocked) Kind() Kind     { return KindTransitionBlocked }
func (TransitionZoneEntered) Kind() Kind { return KindTransitionZoneEntered }

func (NewDay) sealed()                {}
func (HourChange) sealed()            {}
func (MinuteChange) sealed()          {}
func (SeasonChange) sealed()          {}
func (WeatherChange) sealed()         {}
func (Lightning) sealed()             {}
func (Thunder) sealed()               {}
func (ShipArrival) sealed()           {}
func (ShipDeparture) sealed()         {}
func (CargoUnloaded) sealed()         {}
func (CargoDemand) sealed()           {}
func (CargoDemandExpired) sealed()    {}
func (MarketUpdate) sealed()          {}
func (NPCTrade) sealed()              {}
func (LocationChange) sealed()        {}
func (TransitionBlocked) sealed()     {}
func (TransitionZoneEntered) sealed() {}
