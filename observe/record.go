package observe

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolproxy/invocation"
)

// Record is one entry of an InvocationLog: a call as it entered the pipeline.
type Record struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Target     string
	Positional []any
	Keyword    []invocation.Param
}

// Args returns the recorded arguments.
func (r Record) Args() invocation.Args {
	return invocation.Args{Positional: r.Positional, Keyword: r.Keyword}
}

// String renders the call as target(v1, v2, name=v3).
func (r Record) String() string {
	parts := make([]string, 0, len(r.Positional)+len(r.Keyword))
	for _, v := range r.Positional {
		parts = append(parts, fmt.Sprint(v))
	}
	for _, p := range r.Keyword {
		parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Value))
	}
	return r.Target + "(" + strings.Join(parts, ", ") + ")"
}

// InvocationLog is an append-only, in-memory list of Records.
// It is safe for concurrent use.
type InvocationLog struct {
	mu      sync.Mutex
	records []Record
}

// NewInvocationLog returns an empty log.
func NewInvocationLog() *InvocationLog {
	return &InvocationLog{}
}

// Append adds a record.
func (l *InvocationLog) Append(r Record) {
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
}

// Records returns a copy of all records in append order.
func (l *InvocationLog) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Len returns the number of records.
func (l *InvocationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
