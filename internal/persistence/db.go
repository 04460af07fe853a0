// Package persistence provides SQLite-based save storage and the compressed event journal.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/engine"
	"github.com/talgya/goa1590/internal/harbor"
)

// Meta keys for the per-system snapshots kept in world_meta.
const (
	MetaClock      = "clock"
	MetaMarketOpen = "market_open"
	MetaWeather    = "weather"
	MetaWind       = "wind"
	MetaLocation   = "location"
	MetaPlayer     = "player"
	MetaStamp      = "stamp"
	MetaSavedAt    = "saved_at"
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS market_goods (
		good_id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		price INTEGER NOT NULL,
		supply INTEGER NOT NULL,
		demand INTEGER NOT NULL,
		trend TEXT NOT NULL,
		history_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS traders (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		gold INTEGER NOT NULL,
		last_action INTEGER NOT NULL,
		holdings_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS harbor_events (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		type TEXT NOT NULL,
		day INTEGER NOT NULL,
		expiry_day INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		minute INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_harbor_status ON harbor_events(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type goodRow struct {
	economy.GoodSave
	Seq         int    `db:"seq"`
	HistoryJSON string `db:"history_json"`
}

type traderRow struct {
	ID           string `db:"id"`
	Seq          int    `db:"seq"`
	Gold         int    `db:"gold"`
	LastAction   int64  `db:"last_action"`
	HoldingsJSON string `db:"holdings_json"`
}

type harborRow struct {
	ID          string `db:"id"`
	Seq         int    `db:"seq"`
	Status      string `db:"status"` // "scheduled" or "active"
	Type        string `db:"type"`
	Day         int    `db:"day"` // fire day, or start day when active
	ExpiryDay   int    `db:"expiry_day"`
	PayloadJSON string `db:"payload_json"`
}

// SaveMarket writes every good and trader (full replace).
func (db *DB) SaveMarket(d economy.SaveData) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveMarket(tx, d); err != nil {
		return err
	}
	return tx.Commit()
}

func saveMarket(tx *sqlx.Tx, d economy.SaveData) error {
	if _, err := tx.Exec("DELETE FROM market_goods"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO market_goods
		(good_id, seq, price, supply, demand, trend, history_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, g := range d.Goods {
		historyJSON, _ := json.Marshal(g.History)
		if _, err := stmt.Exec(g.GoodID, i, g.Price, g.Supply, g.Demand, g.Trend, string(historyJSON)); err != nil {
			return fmt.Errorf("insert good %s: %w", g.GoodID, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM traders"); err != nil {
		return err
	}
	for i, t := range d.Traders {
		holdingsJSON, _ := json.Marshal(t.Holdings)
		_, err := tx.Exec(`INSERT INTO traders (id, seq, gold, last_action, holdings_json) VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, t.Gold, int64(t.LastAction), string(holdingsJSON))
		if err != nil {
			return fmt.Errorf("insert trader %s: %w", t.ID, err)
		}
	}
	return nil
}

// LoadMarket reads the saved goods and traders in their saved order.
func (db *DB) LoadMarket() (economy.SaveData, error) {
	var d economy.SaveData

	var goods []goodRow
	if err := db.conn.Select(&goods,
		"SELECT good_id, seq, price, supply, demand, trend, history_json FROM market_goods ORDER BY seq"); err != nil {
		return d, fmt.Errorf("select goods: %w", err)
	}
	for _, r := range goods {
		g := r.GoodSave
		if err := json.Unmarshal([]byte(r.HistoryJSON), &g.History); err != nil {
			return d, fmt.Errorf("decode history of %s: %w", g.GoodID, err)
		}
		d.Goods = append(d.Goods, g)
	}

	var traders []traderRow
	if err := db.conn.Select(&traders,
		"SELECT id, seq, gold, last_action, holdings_json FROM traders ORDER BY seq"); err != nil {
		return d, fmt.Errorf("select traders: %w", err)
	}
	for _, r := range traders {
		t := economy.TraderSave{ID: r.ID, Gold: r.Gold, LastAction: time.Duration(r.LastAction)}
		if err := json.Unmarshal([]byte(r.HoldingsJSON), &t.Holdings); err != nil {
			return d, fmt.Errorf("decode holdings of %s: %w", r.ID, err)
		}
		d.Traders = append(d.Traders, t)
	}
	return d, nil
}

// SaveHarbor writes the scheduled and active harbor events (full replace).
func (db *DB) SaveHarbor(d harbor.SaveData) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveHarbor(tx, d); err != nil {
		return err
	}
	return tx.Commit()
}

func saveHarbor(tx *sqlx.Tx, d harbor.SaveData) error {
	if _, err := tx.Exec("DELETE FROM harbor_events"); err != nil {
		return err
	}
	insert := func(seq int, status string, id string, typ harbor.EventType, day, expiry int, p harbor.Payload) error {
		payloadJSON, _ := json.Marshal(p)
		_, err := tx.Exec(`INSERT INTO harbor_events
			(id, seq, status, type, day, expiry_day, payload_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, seq, status, string(typ), day, expiry, string(payloadJSON))
		if err != nil {
			return fmt.Errorf("insert harbor event %s: %w", id, err)
		}
		return nil
	}

	seq := 0
	for _, e := range d.Scheduled {
		if err := insert(seq, "scheduled", e.ID, e.Type, e.Day, e.Day, e.Payload); err != nil {
			return err
		}
		seq++
	}
	for _, e := range d.Active {
		if err := insert(seq, "active", e.ID, e.Type, e.StartDay, e.ExpiryDay, e.Payload); err != nil {
			return err
		}
		seq++
	}
	return nil
}

// LoadHarbor reads the saved harbor events.
func (db *DB) LoadHarbor() (harbor.SaveData, error) {
	var d harbor.SaveData
	var rows []harborRow
	if err := db.conn.Select(&rows,
		"SELECT id, seq, status, type, day, expiry_day, payload_json FROM harbor_events ORDER BY seq"); err != nil {
		return d, fmt.Errorf("select harbor events: %w", err)
	}
	for _, r := range rows {
		var p harbor.Payload
		if err := json.Unmarshal([]byte(r.PayloadJSON), &p); err != nil {
			return d, fmt.Errorf("decode payload of %s: %w", r.ID, err)
		}
		switch r.Status {
		case "scheduled":
			d.Scheduled = append(d.Scheduled, harbor.ScheduledEvent{ID: r.ID, Type: harbor.EventType(r.Type), Day: r.Day, Payload: p})
		case "active":
			d.Active = append(d.Active, harbor.ActiveEvent{ID: r.ID, Type: harbor.EventType(r.Type), StartDay: r.Day, ExpiryDay: r.ExpiryDay, Payload: p})
		default:
			slog.Warn("harbor event with unknown status", "id", r.ID, "status", r.Status)
		}
	}
	return d, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveEvents(tx, events); err != nil {
		return err
	}
	return tx.Commit()
}

func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (day, hour, minute, description, category) VALUES (?, ?, ?, ?, ?)",
			e.Day, e.Hour, e.Minute, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key returns sql.ErrNoRows.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// GetMetaJSON decodes a JSON metadata value into v.
func (db *DB) GetMetaJSON(key string, v any) error {
	raw, err := db.GetMeta(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode meta %s: %w", key, err)
	}
	return nil
}

func saveMetaJSON(tx *sqlx.Tx, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", key, err)
	}
	_, err = tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, string(b))
	return err
}

// HasWorldState reports whether a save exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaClock)
	return err == nil
}

// SaveWorldState performs a full save of the session in one transaction, then appends the
// events recorded since the last save.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	d := sim.SaveData()
	slog.Info("saving world state", "stamp", sim.Clock.Stamp(), "goods", len(d.Market.Goods),
		"scheduled", len(d.Harbor.Scheduled), "active", len(d.Harbor.Active))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveMarket(tx, d.Market); err != nil {
		return fmt.Errorf("save market: %w", err)
	}
	if err := saveHarbor(tx, d.Harbor); err != nil {
		return fmt.Errorf("save harbor: %w", err)
	}
	meta := []struct {
		key string
		v   any
	}{
		{MetaClock, d.Clock},
		{MetaMarketOpen, d.MarketOpen},
		{MetaWeather, d.Weather},
		{MetaWind, d.Wind},
		{MetaLocation, d.Location},
		{MetaPlayer, d.Player},
		{MetaStamp, sim.Clock.Stamp()},
		{MetaSavedAt, time.Now().UTC().Format(time.RFC3339)},
	}
	for _, m := range meta {
		if err := saveMetaJSON(tx, m.key, m.v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}
	if err := saveEvents(tx, sim.TakeUnsaved()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("world state saved")
	return nil
}

// LoadWorldState restores a saved session into sim. It returns false when no save exists.
func (db *DB) LoadWorldState(sim *engine.Simulation) (bool, error) {
	var d engine.SaveData
	if err := db.GetMetaJSON(MetaClock, &d.Clock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load clock: %w", err)
	}

	meta := []struct {
		key string
		v   any
	}{
		{MetaMarketOpen, &d.MarketOpen},
		{MetaWeather, &d.Weather},
		{MetaWind, &d.Wind},
		{MetaLocation, &d.Location},
		{MetaPlayer, &d.Player},
	}
	for _, m := range meta {
		if err := db.GetMetaJSON(m.key, m.v); err != nil {
			return false, fmt.Errorf("load %s: %w", m.key, err)
		}
	}

	var err error
	if d.Market, err = db.LoadMarket(); err != nil {
		return false, err
	}
	if d.Harbor, err = db.LoadHarbor(); err != nil {
		return false, err
	}
	if err := sim.LoadSaveData(d); err != nil {
		return false, err
	}

	recent, err := db.RecentEvents(50)
	if err != nil {
		return false, err
	}
	for i := len(recent) - 1; i >= 0; i-- {
		sim.Events = append(sim.Events, recent[i])
	}
	return true, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT day, hour, minute, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
