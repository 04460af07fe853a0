package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/engine"
	"github.com/talgya/goa1590/internal/harbor"
	"github.com/talgya/goa1590/internal/persistence"
	"github.com/talgya/goa1590/internal/social"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func newReportCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the saved game: market, harbor, player and recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := persistence.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if !db.HasWorldState() {
				warn.Fprintf(cmd.OutOrStdout(), "No saved game in %s\n", cfg.DBPath)
				return nil
			}
			return printReport(cmd.OutOrStdout(), db, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "events", "n", 15, "recent events to show")
	return cmd
}

func printReport(w io.Writer, db *persistence.DB, limit int) error {
	var clock engine.ClockSave
	if err := db.GetMetaJSON(persistence.MetaClock, &clock); err != nil {
		return err
	}
	var savedAt string
	_ = db.GetMetaJSON(persistence.MetaSavedAt, &savedAt)

	accent.Fprintf(w, "Goa 1590  %s", calendar.Stamp(clock.Day, clock.Hour, clock.Minute))
	if t, err := time.Parse(time.RFC3339, savedAt); err == nil {
		neutral.Fprintf(w, "  (saved %s)", humanize.Time(t))
	}
	fmt.Fprintln(w)

	var player social.SaveData
	if err := db.GetMetaJSON(persistence.MetaPlayer, &player); err != nil {
		return err
	}
	fmt.Fprintf(w, "Purse: %s pardaos   Experience: %s\n", humanize.Comma(int64(player.Gold)), humanize.Comma(int64(player.Experience)))
	if len(player.Items) > 0 {
		fmt.Fprint(w, "Cargo:")
		for id, n := range player.Items {
			fmt.Fprintf(w, " %s×%d", id, n)
		}
		fmt.Fprintln(w)
	}

	market, err := db.LoadMarket()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	accent.Fprintln(w, "Bazaar")
	for _, g := range market.Goods {
		printGoodRow(w, g.GoodID, g.Price, g.Supply, g.Demand, economy.ParseTrend(g.Trend))
	}

	hd, err := db.LoadHarbor()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	printHarbor(w, hd.Active, len(hd.Scheduled))

	events, err := db.RecentEvents(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	accent.Fprintln(w, "Chronicle")
	for i := len(events) - 1; i >= 0; i-- {
		printEvent(w, events[i])
	}
	return nil
}

func printGoodRow(w io.Writer, id string, price, supply, demand int, trend economy.Trend) {
	name := id
	if g, ok := goodsByID()[id]; ok {
		name = g.Name
	}
	fmt.Fprintf(w, "  %-16s %5d  supply %3d  demand %3d  ", name, price, supply, demand)
	switch trend {
	case economy.TrendRising:
		success.Fprintln(w, "▲ rising")
	case economy.TrendFalling:
		danger.Fprintln(w, "▼ falling")
	default:
		neutral.Fprintln(w, "· stable")
	}
}

func printHarbor(w io.Writer, active []harbor.ActiveEvent, scheduled int) {
	accent.Fprintf(w, "Harbour  (%d scheduled)\n", scheduled)
	if len(active) == 0 {
		neutral.Fprintln(w, "  the quays are empty")
		return
	}
	for _, e := range active {
		switch e.Type {
		case harbor.ShipArrival:
			fmt.Fprintf(w, "  %s from %s, in port until day %d\n", e.Payload.ShipName, e.Payload.Origin, e.ExpiryDay)
		case harbor.CargoDemand:
			warn.Fprintf(w, "  %s wants %d %s at %d until day %d  [%s]\n",
				e.Payload.ShipType, e.Payload.Quantity, e.Payload.GoodID, e.Payload.Price, e.ExpiryDay, e.ID)
		}
	}
}

func printEvent(w io.Writer, e engine.Event) {
	stamp := calendar.Stamp(e.Day, e.Hour, e.Minute)
	c := neutral
	switch e.Category {
	case "harbor":
		c = accent
	case "weather":
		c = warn
	case "market":
		c = success
	}
	c.Fprintf(w, "  %-18s", stamp)
	fmt.Fprintf(w, " %s\n", e.Description)
}

func goodsByID() map[string]economy.TradeGood {
	out := make(map[string]economy.TradeGood)
	for _, g := range economy.Catalog() {
		out[g.ID] = g
	}
	return out
}

// printSummary reports a finished headless run.
func printSummary(w io.Writer, sim *engine.Simulation) {
	st := sim.Status()
	accent.Fprintf(w, "Goa 1590  %s\n", st.Stamp)
	fmt.Fprintf(w, "Season: %s   Weather: %s (%.0f%%)   Wind: %s at %.2f\n",
		st.Season, st.Weather, st.Intensity*100, sim.Wind.Compass(), st.Wind.Speed)
	fmt.Fprintf(w, "Ships arrived %s, departed %s   NPC trades %s   market cycles %s   lightning %s\n",
		humanize.Comma(int64(st.Stats.ShipsArrived)), humanize.Comma(int64(st.Stats.ShipsDeparted)),
		humanize.Comma(int64(st.Stats.NPCTrades)), humanize.Comma(int64(st.Stats.MarketUpdates)),
		humanize.Comma(int64(st.Stats.Lightning)))

	fmt.Fprintln(w)
	accent.Fprintln(w, "Bazaar")
	for _, g := range sim.Market.Goods() {
		ms, _ := sim.Market.State(g.ID)
		printGoodRow(w, g.ID, ms.Price, ms.Supply, ms.Demand, ms.Trend)
	}

	fmt.Fprintln(w)
	printHarbor(w, sim.Harbor.ActiveEvents(), len(sim.Harbor.ScheduledEvents()))

	fmt.Fprintln(w)
	accent.Fprintln(w, "Chronicle")
	events := sim.Events
	if len(events) > 15 {
		events = events[len(events)-15:]
	}
	for _, e := range events {
		printEvent(w, e)
	}
}
