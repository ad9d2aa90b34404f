// Package persistence implements the reference-entity and event store on
// top of internal/database, the sqlite wrapper (modernc.org/sqlite,
// WAL-mode, profile-tuned PRAGMAs).
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-go/core/internal/core"
	"github.com/arkin-go/core/internal/database"
	"github.com/arkin-go/core/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	kind TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS venues (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS instruments (
	id TEXT PRIMARY KEY,
	base_asset_id TEXT NOT NULL,
	quote_asset_id TEXT NOT NULL,
	margin_asset_id TEXT NOT NULL,
	venue_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	contract_size TEXT NOT NULL,
	tick_size TEXT NOT NULL,
	lot_size TEXT NOT NULL,
	status TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS strategies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_time INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_log_id ON events_log(event_id);
CREATE INDEX IF NOT EXISTS idx_events_log_time ON events_log(event_time);
`

// Store is the sqlite-backed implementation of runtime.PersistenceReader,
// plus a writer half that sinks Persist()-marked events for replay and
// audit.
type Store struct {
	db *database.DB
}

// Open creates (or opens) a sqlite-backed Store at path and applies the
// schema above. ProfileLedger is used for its WAL-mode PRAGMA tuning
// since the event log is an append-only audit trail.
func Open(path string) (*Store, error) {
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileLedger, Name: "ledger"})
	if err != nil {
		return nil, err
	}
	if _, err := db.Conn().Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// UpsertInstrument writes (or replaces) one reference instrument and its
// referenced assets/venue.
func (s *Store) UpsertInstrument(ctx context.Context, inst *core.Instrument) error {
	for _, a := range []*core.Asset{inst.BaseAsset, inst.QuoteAsset, inst.MarginAsset} {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO assets (id, symbol, kind) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			a.ID.String(), a.Symbol, string(a.Kind)); err != nil {
			return err
		}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO venues (id, name, kind) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		inst.Venue.ID.String(), inst.Venue.Name, string(inst.Venue.Kind)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instruments (id, base_asset_id, quote_asset_id, margin_asset_id, venue_id, kind, contract_size, tick_size, lot_size, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, tick_size = excluded.tick_size, lot_size = excluded.lot_size`,
		inst.ID.String(), inst.BaseAsset.ID.String(), inst.QuoteAsset.ID.String(), inst.MarginAsset.ID.String(),
		inst.Venue.ID.String(), string(inst.Kind), inst.ContractSize.String(), inst.TickSize.String(), inst.LotSize.String(), string(inst.Status))
	return err
}

// LoadInstruments satisfies runtime.PersistenceReader, reconstructing every
// instrument and its referenced assets/venue.
func (s *Store) LoadInstruments(ctx context.Context) ([]*core.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, ba.id, ba.symbol, ba.kind, qa.id, qa.symbol, qa.kind, ma.id, ma.symbol, ma.kind,
		       v.id, v.name, v.kind, i.kind, i.contract_size, i.tick_size, i.lot_size, i.status
		FROM instruments i
		JOIN assets ba ON ba.id = i.base_asset_id
		JOIN assets qa ON qa.id = i.quote_asset_id
		JOIN assets ma ON ma.id = i.margin_asset_id
		JOIN venues v ON v.id = i.venue_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Instrument
	for rows.Next() {
		var idStr, baID, baSym, baKind, qaID, qaSym, qaKind, maID, maSym, maKind string
		var vID, vName, vKind, iKind, contractSize, tickSize, lotSize, status string
		if err := rows.Scan(&idStr, &baID, &baSym, &baKind, &qaID, &qaSym, &qaKind, &maID, &maSym, &maKind,
			&vID, &vName, &vKind, &iKind, &contractSize, &tickSize, &lotSize, &status); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		inst := &core.Instrument{
			ID:           id,
			BaseAsset:    &core.Asset{ID: mustID(baID), Symbol: baSym, Kind: core.AssetKind(baKind)},
			QuoteAsset:   &core.Asset{ID: mustID(qaID), Symbol: qaSym, Kind: core.AssetKind(qaKind)},
			MarginAsset:  &core.Asset{ID: mustID(maID), Symbol: maSym, Kind: core.AssetKind(maKind)},
			Venue:        &core.Venue{ID: mustID(vID), Name: vName, Kind: core.VenueKind(vKind)},
			Kind:         core.InstrumentKind(iKind),
			ContractSize: mustDecimal(contractSize),
			TickSize:     mustDecimal(tickSize),
			LotSize:      mustDecimal(lotSize),
			Status:       core.TradingStatus(status),
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// genericEvent wraps a replayed events_log row so it satisfies
// events.Event without a concrete struct per event type; consumers that
// need the typed payload unmarshal Payload themselves using EventType as
// the discriminant.
type genericEvent struct {
	typ     events.Type
	t       time.Time
	Payload json.RawMessage
}

func (g *genericEvent) EventType() events.Type { return g.typ }
func (g *genericEvent) EventTime() time.Time   { return g.t }
func (g *genericEvent) Persist() bool          { return true }

// RawPayload exposes the event's original marshaled JSON, for callers that
// need to decode fields beyond the Event interface's type/time/persist
// triple (e.g. fitting a scaler from replayed InsightsUpdate events).
func (g *genericEvent) RawPayload() json.RawMessage { return g.Payload }

// WriteEvent appends ev to the audit log if ev.Persist() reports true.
func (s *Store) WriteEvent(ctx context.Context, ev events.Event) error {
	if !ev.Persist() {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("persistence: marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO events_log (event_id, event_type, event_time, payload) VALUES (?, ?, ?, ?)`,
		core.NewID().String(), string(ev.EventType()), ev.EventTime().UnixMilli(), string(payload))
	return err
}

// LoadEventsSince satisfies runtime.PersistenceReader. The sqlite log is
// small enough in practice (one node's event history) that we load the
// whole table in id order rather than building a cursor protocol around
// since; pass core.NilID for "from the beginning".
func (s *Store) LoadEventsSince(ctx context.Context, since core.ID) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_type, event_time, payload FROM events_log ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var typ string
		var ms int64
		var payload string
		if err := rows.Scan(&typ, &ms, &payload); err != nil {
			return nil, err
		}
		out = append(out, &genericEvent{
			typ:     events.Type(typ),
			t:       time.UnixMilli(ms).UTC(),
			Payload: json.RawMessage(payload),
		})
	}
	return out, rows.Err()
}

func mustID(s string) core.ID {
	id, err := uuid.Parse(s)
	if err != nil {
		return core.NewID()
	}
	return id
}

func mustDecimal(s string) core.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Zero
	}
	return d
}
