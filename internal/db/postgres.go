package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/position"
	_ "github.com/lib/pq"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(connStr string, maxOpen, maxIdle int) (*Postgres, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: conn}, nil
}

func (p *Postgres) GetDB() *sql.DB {
	return p.db
}

// InitSchema creates the tables the engine needs if they do not exist.
func (p *Postgres) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS trade_state (
		symbol      TEXT PRIMARY KEY,
		position    TEXT NOT NULL,
		last_signal TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS executions (
		id            UUID PRIMARY KEY,
		symbol        TEXT NOT NULL,
		signal_kind   TEXT NOT NULL,
		signal_reason TEXT NOT NULL DEFAULT '',
		order_id      TEXT NOT NULL DEFAULT '',
		broker_status TEXT NOT NULL DEFAULT '',
		payload       JSONB NOT NULL,
		executed      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_symbol_created
		ON executions (symbol, created_at);
	CREATE TABLE IF NOT EXISTS events (
		id          BIGSERIAL PRIMARY KEY,
		time        TIMESTAMPTZ NOT NULL,
		type        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data        JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_events_type_time ON events (type, time);`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// executeWithTransaction executes a function with proper transaction management
// If a transaction exists in context, it uses that. Otherwise, it creates a new one.
func (p *Postgres) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}

	return nil
}

// queryWithTransaction executes a query using transaction from context if available
func (p *Postgres) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

// GetOrCreate returns the ledger entry for symbol, inserting a NONE entry
// on first reference.
func (p *Postgres) GetOrCreate(ctx context.Context, symbol string) (position.Entry, error) {
	entry := position.Entry{Symbol: symbol, Position: position.None, UpdatedAt: time.Now().UTC()}

	err := p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO trade_state (symbol, position, last_signal, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (symbol) DO NOTHING`,
			symbol, entry.Position, entry.LastSignal, entry.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to ensure trade state for %s: %w", symbol, err)
		}

		row := tx.QueryRowContext(ctx, `
		SELECT symbol, position, last_signal, updated_at
		FROM trade_state WHERE symbol = $1`, symbol)
		return row.Scan(&entry.Symbol, &entry.Position, &entry.LastSignal, &entry.UpdatedAt)
	})
	if err != nil {
		return position.Entry{}, err
	}
	return entry, nil
}

// Save overwrites the ledger entry for entry.Symbol.
func (p *Postgres) Save(ctx context.Context, entry position.Entry) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO trade_state (symbol, position, last_signal, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (symbol) DO UPDATE SET
			position=EXCLUDED.position, last_signal=EXCLUDED.last_signal,
			updated_at=EXCLUDED.updated_at`,
			entry.Symbol, entry.Position, entry.LastSignal, entry.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save trade state for %s: %w", entry.Symbol, err)
		}
		return nil
	})
}

// SaveExecution appends one execution record.
func (p *Postgres) SaveExecution(ctx context.Context, rec order.ExecutionRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal execution payload: %w", err)
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO executions (id, symbol, signal_kind, signal_reason, order_id, broker_status, payload, executed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			rec.ID, rec.Symbol, rec.SignalKind, rec.SignalReason,
			rec.OrderID, rec.BrokerStatus, payload, rec.Executed, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save execution %s: %w", rec.ID, err)
		}
		return nil
	})
}

// MarkExecuted flips the executed flag for one record.
func (p *Postgres) MarkExecuted(ctx context.Context, id, brokerStatus string) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE executions SET executed = TRUE, broker_status = $2 WHERE id = $1`,
			id, brokerStatus)
		if err != nil {
			return fmt.Errorf("failed to mark execution %s executed: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("execution %s not found", id)
		}
		return nil
	})
}

// GetExecutions returns execution records for a symbol in [start, end].
func (p *Postgres) GetExecutions(ctx context.Context, symbol string, start, end time.Time) ([]order.ExecutionRecord, error) {
	rows, err := p.queryWithTransaction(ctx, `
	SELECT id, symbol, signal_kind, signal_reason, order_id, broker_status, payload, executed, created_at
	FROM executions
	WHERE symbol = $1 AND created_at >= $2 AND created_at <= $3
	ORDER BY created_at`, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions for %s: %w", symbol, err)
	}
	defer rows.Close()

	var recs []order.ExecutionRecord
	for rows.Next() {
		var rec order.ExecutionRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.SignalKind, &rec.SignalReason,
			&rec.OrderID, &rec.BrokerStatus, &payload, &rec.Executed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution payload: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LogEvent appends a journal event.
func (p *Postgres) LogEvent(ctx context.Context, event journal.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO events (time, type, description, data)
		VALUES ($1,$2,$3,$4)`,
			event.Time, event.Type, event.Description, data)
		if err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
}

// GetEvents returns journal events of one type in [start, end].
func (p *Postgres) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]journal.Event, error) {
	rows, err := p.queryWithTransaction(ctx, `
	SELECT time, type, description, data
	FROM events
	WHERE type = $1 AND time >= $2 AND time <= $3
	ORDER BY time`, eventType, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []journal.Event
	for rows.Next() {
		var ev journal.Event
		var data []byte
		if err := rows.Scan(&ev.Time, &ev.Type, &ev.Description, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ev.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
