// Player actions: trades at the bazaar, sales to waiting ships, and travel.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/harbor"
	"github.com/talgya/goa1590/internal/world"
)

// PlayerBuy buys one unit of a good for the player at the modified price.
func (s *Simulation) PlayerBuy(goodID, vendorFaction, vendorNPC string) economy.TradeResult {
	g, ok := s.Market.Good(goodID)
	if !ok {
		return economy.TradeResult{GoodID: goodID, Message: fmt.Sprintf("no such good %q", goodID)}
	}
	if s.OutdoorTradeClosed() {
		return economy.TradeResult{GoodID: goodID, Message: fmt.Sprintf("the stalls of %s are shut by the rain", s.World.Current().Name)}
	}
	price := s.Market.Price(goodID, true, vendorFaction, vendorNPC)
	if s.Player.Gold() < price {
		return economy.TradeResult{GoodID: goodID, Price: price, Message: fmt.Sprintf("%s costs %d pardaos; you have %d", g.Name, price, s.Player.Gold())}
	}

	res := s.Market.Buy(goodID)
	if !res.Success {
		return res
	}
	s.Player.Spend(price)
	s.Player.AddItem(goodID, 1)
	s.Player.RecordTrade(price)
	res.Price = price
	res.Message = fmt.Sprintf("Bought 1 %s for %d pardaos", g.Name, price)

	slog.Info("player bought", "good", goodID, "price", price, "gold", s.Player.Gold())
	return res
}

// PlayerSell sells one carried unit of a good at the modified price.
func (s *Simulation) PlayerSell(goodID, vendorFaction, vendorNPC string) economy.TradeResult {
	g, ok := s.Market.Good(goodID)
	if !ok {
		return economy.TradeResult{GoodID: goodID, Message: fmt.Sprintf("no such good %q", goodID)}
	}
	if s.OutdoorTradeClosed() {
		return economy.TradeResult{GoodID: goodID, Message: fmt.Sprintf("the stalls of %s are shut by the rain", s.World.Current().Name)}
	}
	if !s.Player.HasItem(goodID) {
		return economy.TradeResult{GoodID: goodID, Message: fmt.Sprintf("you carry no %s", g.Name)}
	}
	price := s.Market.Price(goodID, false, vendorFaction, vendorNPC)

	res := s.Market.Sell(goodID)
	if !res.Success {
		return res
	}
	s.Player.RemoveItem(goodID, 1)
	s.Player.Earn(price)
	s.Player.RecordTrade(price)
	res.Price = price
	res.Message = fmt.Sprintf("Sold 1 %s for %d pardaos", g.Name, price)

	slog.Info("player sold", "good", goodID, "price", price, "gold", s.Player.Gold())
	return res
}

// OutdoorTradeClosed reports whether the player stands at an open-air market the weather has shut.
func (s *Simulation) OutdoorTradeClosed() bool {
	return s.World.Current().Outdoor && s.Weather.IsOutdoorMarketAffected()
}

// PlayerSellToShip fills a departing ship's cargo demand from the player's inventory.
func (s *Simulation) PlayerSellToShip(eventID string, qty int) (harbor.DemandSale, error) {
	active := s.Harbor.ActiveEvents()
	i := slices.IndexFunc(active, func(e harbor.ActiveEvent) bool { return e.ID == eventID })
	if i < 0 {
		return harbor.DemandSale{}, fmt.Errorf("sell to ship: no active event %q", eventID)
	}
	goodID := active[i].Payload.GoodID
	qty = min(qty, s.Player.ItemCount(goodID))
	if qty <= 0 {
		return harbor.DemandSale{}, fmt.Errorf("sell to ship: you carry no %s", goodID)
	}

	sale, err := s.Harbor.FulfillDemand(eventID, qty)
	if err != nil {
		return harbor.DemandSale{}, err
	}
	s.Player.RemoveItem(goodID, sale.Quantity)
	s.Player.Earn(sale.Total)
	s.Player.RecordTrade(sale.Total)
	s.record("harbor", fmt.Sprintf("Sold %d %s to a %s for %d pardaos", sale.Quantity, goodID, active[i].Payload.ShipType, sale.Total))
	return sale, nil
}

// PlayerMove attempts a transition from the current location.
func (s *Simulation) PlayerMove(connectionID string) world.RequirementResult {
	return s.World.AttemptTransition(connectionID)
}
