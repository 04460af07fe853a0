// Package economy provides the trade goods catalog, the market engine, pricing modifiers and
// the NPC traders who work the bazaar.
package economy

// Category groups goods for display and for tariff purposes.
type Category uint8

const (
	CategorySpice Category = iota
	CategoryFabric
	CategoryLuxury
	CategoryCommodity
)

// String returns the wire name of the category.
func (c Category) String() string {
	switch c {
	case CategorySpice:
		return "spice"
	case CategoryFabric:
		return "fabric"
	case CategoryLuxury:
		return "luxury"
	case CategoryCommodity:
		return "commodity"
	default:
		return "unknown"
	}
}

// TradeGood is an immutable catalog entry.
type TradeGood struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	BasePrice int      `json:"base_price"` // pardaos
	Category  Category `json:"category"`
	Origin    string   `json:"origin"`
	Weight    float64  `json:"weight"` // quintals per unit
	Rarity    int      `json:"rarity"` // 1-10, drives volatility
}

// Catalog returns the goods traded in Goa, in display order.
func Catalog() []TradeGood {
	return []TradeGood{
		{ID: "good_pepper", Name: "Black Pepper", BasePrice: 15, Category: CategorySpice, Origin: "Malabar", Weight: 1, Rarity: 3},
		{ID: "good_cinnamon", Name: "Cinnamon", BasePrice: 25, Category: CategorySpice, Origin: "Ceylon", Weight: 1, Rarity: 5},
		{ID: "good_cloves", Name: "Cloves", BasePrice: 40, Category: CategorySpice, Origin: "Moluccas", Weight: 0.5, Rarity: 7},
		{ID: "good_nutmeg", Name: "Nutmeg", BasePrice: 45, Category: CategorySpice, Origin: "Banda", Weight: 0.5, Rarity: 8},
		{ID: "good_ginger", Name: "Ginger", BasePrice: 12, Category: CategorySpice, Origin: "Malabar", Weight: 1, Rarity: 2},
		{ID: "good_silk", Name: "Silk", BasePrice: 60, Category: CategoryFabric, Origin: "Canton", Weight: 0.8, Rarity: 6},
		{ID: "good_cotton", Name: "Cotton Cloth", BasePrice: 10, Category: CategoryFabric, Origin: "Gujarat", Weight: 1.5, Rarity: 1},
		{ID: "good_indigo", Name: "Indigo", BasePrice: 20, Category: CategoryCommodity, Origin: "Gujarat", Weight: 1, Rarity: 4},
		{ID: "good_porcelain", Name: "Porcelain", BasePrice: 80, Category: CategoryLuxury, Origin: "Jingdezhen", Weight: 2, Rarity: 7},
		{ID: "good_pearls", Name: "Pearls", BasePrice: 120, Category: CategoryLuxury, Origin: "Persian Gulf", Weight: 0.1, Rarity: 9},
		{ID: "good_silver", Name: "Silver", BasePrice: 100, Category: CategoryLuxury, Origin: "Lisbon", Weight: 0.5, Rarity: 6},
		{ID: "good_wine", Name: "Portuguese Wine", BasePrice: 18, Category: CategoryCommodity, Origin: "Lisbon", Weight: 3, Rarity: 4},
		{ID: "good_rice", Name: "Rice", BasePrice: 5, Category: CategoryCommodity, Origin: "Kanara", Weight: 2, Rarity: 1},
		{ID: "good_sandalwood", Name: "Sandalwood", BasePrice: 50, Category: CategoryLuxury, Origin: "Timor", Weight: 2, Rarity: 7},
		{ID: "good_tea", Name: "Tea", BasePrice: 22, Category: CategoryCommodity, Origin: "Fujian", Weight: 1, Rarity: 5},
		{ID: "good_frankincense", Name: "Frankincense", BasePrice: 35, Category: CategoryLuxury, Origin: "Hadramaut", Weight: 0.5, Rarity: 6},
	}
}
