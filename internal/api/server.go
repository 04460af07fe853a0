// Package api provides the HTTP API for observing the simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (player actions and admin control).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/engine"
	"github.com/talgya/goa1590/internal/world"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Save persists the session on POST /api/v1/snapshot. Nil disables the endpoint.
	Save func() error

	// Trades limits player actions per client.
	Trades *RateLimiter
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	if s.Trades == nil {
		s.Trades = NewRateLimiter(120, time.Minute)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/market", s.handleMarket)
		r.Get("/market/{good}", s.handleGood)
		r.Get("/traders", s.handleTraders)
		r.Get("/weather", s.handleWeather)
		r.Get("/wind", s.handleWind)
		r.Get("/harbor", s.handleHarbor)
		r.Get("/location", s.handleLocation)
		r.Get("/locations", s.handleLocations)
		r.Get("/player", s.handlePlayer)
		r.Get("/events", s.handleEvents)
		r.Get("/speed", s.handleSpeed)

		if s.Hub != nil {
			r.Get("/stream", s.Hub.ServeWs)
		}

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.With(s.rateLimited).Post("/market/{good}/buy", s.handleBuy)
			r.With(s.rateLimited).Post("/market/{good}/sell", s.handleSell)
			r.With(s.rateLimited).Post("/harbor/{event}/sell", s.handleSellToShip)
			r.With(s.rateLimited).Post("/location/transition", s.handleTransition)
			r.Post("/speed", s.handleSpeed)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})
	return r
}

// Start serves the API until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins. Localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				writeError(w, http.StatusForbidden, "admin endpoints disabled (no GOA_ADMIN_KEY set)")
				return
			}
			if !s.checkBearerToken(r) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return RateLimitMiddleware(s.Trades, next)
}

// view runs fn between frames so handlers never observe a half-updated simulation.
func (s *Server) view(fn func()) {
	if s.Eng == nil {
		fn()
		return
	}
	s.Eng.Do(fn)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st engine.Status
	s.view(func() { st = s.Sim.Status() })

	resp := map[string]any{
		"name":   "Goa 1590",
		"status": st,
	}
	if s.Eng != nil {
		resp["speed"] = s.Eng.Speed()
		resp["running"] = s.Eng.Running()
	}
	writeJSON(w, http.StatusOK, resp)
}

type goodView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	BasePrice int    `json:"base_price"`
	Price     int    `json:"price"`
	BuyPrice  int    `json:"buy_price"`
	SellPrice int    `json:"sell_price"`
	Supply    int    `json:"supply"`
	Demand    int    `json:"demand"`
	Trend     string `json:"trend"`
	History   []int  `json:"history,omitempty"`
}

func (s *Server) goodView(g economy.TradeGood, withHistory bool) goodView {
	st, _ := s.Sim.Market.State(g.ID)
	v := goodView{
		ID:        g.ID,
		Name:      g.Name,
		Category:  g.Category.String(),
		BasePrice: g.BasePrice,
		Price:     st.Price,
		BuyPrice:  s.Sim.Market.Price(g.ID, true, "", ""),
		SellPrice: s.Sim.Market.Price(g.ID, false, "", ""),
		Supply:    st.Supply,
		Demand:    st.Demand,
		Trend:     st.Trend.String(),
	}
	if withHistory {
		v.History = st.History
	}
	return v
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	var goods []goodView
	var open bool
	s.view(func() {
		open = s.Sim.MarketOpen()
		for _, g := range s.Sim.Market.Goods() {
			goods = append(goods, s.goodView(g, false))
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"open": open, "goods": goods})
}

func (s *Server) handleGood(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "good")
	var v goodView
	var ok bool
	s.view(func() {
		var g economy.TradeGood
		if g, ok = s.Sim.Market.Good(id); ok {
			v = s.goodView(g, true)
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no such good %q", id))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleTraders(w http.ResponseWriter, r *http.Request) {
	type traderView struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Faction     string         `json:"faction"`
		Personality string         `json:"personality"`
		Gold        int            `json:"gold"`
		Holdings    map[string]int `json:"holdings,omitempty"`
	}
	var out []traderView
	s.view(func() {
		for _, t := range s.Sim.Market.Traders() {
			out = append(out, traderView{
				ID: t.ID, Name: t.Name, Faction: t.Faction,
				Personality: t.Personality.String(), Gold: t.Gold, Holdings: t.Holdings,
			})
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.view(func() {
		wx := s.Sim.Weather
		resp = map[string]any{
			"season":    wx.Season().String(),
			"state":     wx.State().String(),
			"intensity": wx.Intensity(),
			"remaining": wx.Remaining(),
			"effects":   wx.Effects(),
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWind(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.view(func() {
		st := s.Sim.Wind.State()
		resp = map[string]any{
			"direction": st.Direction,
			"speed":     st.Speed,
			"gustiness": st.Gustiness,
			"compass":   s.Sim.Wind.Compass(),
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHarbor(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.view(func() {
		resp = map[string]any{
			"day":       s.Sim.Clock.Day(),
			"active":    s.Sim.Harbor.ActiveEvents(),
			"scheduled": s.Sim.Harbor.ScheduledEvents(),
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	type connView struct {
		world.LocationConnection
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason,omitempty"`
	}
	var loc world.Location
	var conns []connView
	var busy bool
	s.view(func() {
		loc = s.Sim.World.Current()
		busy = s.Sim.World.Busy()
		for _, c := range loc.Connections {
			res := s.Sim.World.CheckRequirements(c.Requirement)
			conns = append(conns, connView{LocationConnection: c, Allowed: res.Allowed, Reason: res.Reason})
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          loc.ID,
		"name":        loc.Name,
		"faction":     loc.Faction,
		"busy":        busy,
		"connections": conns,
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	var locs []world.Location
	s.view(func() { locs = s.Sim.World.Locations() })
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	type factionView struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Reputation int    `json:"reputation"`
		Band       string `json:"band"`
	}
	var resp map[string]any
	s.view(func() {
		p := s.Sim.Player
		var factions []factionView
		for _, id := range s.Sim.Factions.IDs() {
			f, _ := s.Sim.Factions.Get(id)
			rep, _ := p.Reputation(id)
			factions = append(factions, factionView{ID: id, Name: f.Name, Reputation: rep, Band: economy.BandFor(rep).Name})
		}
		resp = map[string]any{
			"gold":       p.Gold(),
			"level":      p.Level(),
			"experience": p.Experience(),
			"inventory":  p.Inventory(),
			"factions":   factions,
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	var events []engine.Event
	s.view(func() {
		for _, e := range s.Sim.Events {
			if category == "" || e.Category == category {
				events = append(events, e)
			}
		}
	})

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, http.StatusOK, events[start:])
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		writeError(w, http.StatusServiceUnavailable, "no engine")
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			writeError(w, http.StatusBadRequest, "speed must be 0-1000")
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}
	writeJSON(w, http.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

type tradeRequest struct {
	Faction string `json:"faction"`
	NPC     string `json:"npc"`
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, true)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, false)
}

func (s *Server) trade(w http.ResponseWriter, r *http.Request, buying bool) {
	var req tradeRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	good := chi.URLParam(r, "good")

	var res economy.TradeResult
	var gold int
	s.view(func() {
		if buying {
			res = s.Sim.PlayerBuy(good, req.Faction, req.NPC)
		} else {
			res = s.Sim.PlayerSell(good, req.Faction, req.NPC)
		}
		gold = s.Sim.Player.Gold()
	})

	status := http.StatusOK
	if !res.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"result": res, "gold": gold})
}

func (s *Server) handleSellToShip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	id := chi.URLParam(r, "event")

	var resp map[string]any
	var err error
	s.view(func() {
		sale, sellErr := s.Sim.PlayerSellToShip(id, req.Quantity)
		if sellErr != nil {
			err = sellErr
			return
		}
		resp = map[string]any{"sale": sale, "gold": s.Sim.Player.Gold()}
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection string `json:"connection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Connection == "" {
		writeError(w, http.StatusBadRequest, "connection required")
		return
	}

	var res world.RequirementResult
	var loc string
	s.view(func() {
		res = s.Sim.PlayerMove(req.Connection)
		loc = s.Sim.World.Current().ID
	})

	status := http.StatusOK
	if !res.Allowed {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"allowed": res.Allowed, "reason": res.Reason, "location": loc})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Save == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	var err error
	s.view(func() { err = s.Save() })
	if err != nil {
		slog.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
