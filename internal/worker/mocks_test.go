package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn

	mu         sync.Mutex
	Batches    []*MockBatch
	Execs      []string
	PrepareErr error
	SendErr    error
}

func (m *MockClickHouseConn) Exec(ctx context.Context, query string, args ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Execs = append(m.Execs, query)
	return nil
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	b := &MockBatch{sendErr: m.SendErr}
	m.mu.Lock()
	m.Batches = append(m.Batches, b)
	m.mu.Unlock()
	return b, nil
}

// SentRows returns every appended row of every sent batch.
func (m *MockClickHouseConn) SentRows() [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]interface{}
	for _, b := range m.Batches {
		if b.sent {
			out = append(out, b.rows...)
		}
	}
	return out
}

type MockBatch struct {
	driver.Batch

	rows    [][]interface{}
	sent    bool
	sendErr error
}

func (m *MockBatch) IsSent() bool {
	return m.sent
}

func (m *MockBatch) Rows() int {
	return len(m.rows)
}

func (m *MockBatch) Append(v ...interface{}) error {
	if len(v) != 15 {
		return errors.New("column count mismatch")
	}
	m.rows = append(m.rows, v)
	return nil
}

func (m *MockBatch) Send() error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = true
	return nil
}

func (m *MockBatch) Flush() error {
	return nil
}

func (m *MockBatch) Abort() error {
	return nil
}
