package systems

import (
	"context"
	"time"
)

// System is a unit of simulation logic ticked by a Manager.
type System interface {
	Name() string
	Priority() Priority

	Initialize(ctx context.Context) error
	Update(deltaTime float64) error
	Shutdown(ctx context.Context) error
}

// Priority defines execution order; higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// Metrics provides runtime metrics for a system.
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	LastExecutionTime    time.Duration
	ErrorCount           uint64
	LastError            error
}

func (m *Metrics) record(d time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += d
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	m.LastExecutionTime = d
	if d > m.MaxExecutionTime {
		m.MaxExecutionTime = d
	}
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
