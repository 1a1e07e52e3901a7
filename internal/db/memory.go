package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/journal"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/order"
	"github.com/PavanMahindrakar/quant-ohlc-engine/internal/position"
)

// Memory is an in-memory Storage used in tests and paper sessions.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]position.Entry
	executions []order.ExecutionRecord
	events     []journal.Event
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]position.Entry),
	}
}

func (m *Memory) GetOrCreate(ctx context.Context, symbol string) (position.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[symbol]; ok {
		return entry, nil
	}
	entry := position.Entry{
		Symbol:    symbol,
		Position:  position.None,
		UpdatedAt: time.Now().UTC(),
	}
	m.entries[symbol] = entry
	return entry, nil
}

func (m *Memory) Save(ctx context.Context, entry position.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Symbol] = entry
	return nil
}

func (m *Memory) SaveExecution(ctx context.Context, rec order.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, rec)
	return nil
}

func (m *Memory) MarkExecuted(ctx context.Context, id, brokerStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.executions {
		if m.executions[i].ID == id {
			m.executions[i].Executed = true
			m.executions[i].BrokerStatus = brokerStatus
			return nil
		}
	}
	return fmt.Errorf("execution %s not found", id)
}

func (m *Memory) GetExecutions(ctx context.Context, symbol string, start, end time.Time) ([]order.ExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []order.ExecutionRecord
	for _, rec := range m.executions {
		if rec.Symbol != symbol {
			continue
		}
		if rec.CreatedAt.Before(start) || rec.CreatedAt.After(end) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (m *Memory) LogEvent(ctx context.Context, event journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]journal.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []journal.Event
	for _, ev := range m.events {
		if ev.Type != eventType {
			continue
		}
		if ev.Time.Before(start) || ev.Time.After(end) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
