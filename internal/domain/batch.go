package domain

import (
	"fmt"
	"sort"
	"time"
)

// EntityStatus outcome of processing one entity in a batch
type EntityStatus string

const (
	EntityOK      EntityStatus = "ok"
	EntitySkipped EntityStatus = "skipped"
	EntityError   EntityStatus = "error"
)

// EntityResult outcome for one salon/staff/booking/alert in a batch
type EntityResult struct {
	Kind   string
	ID     int64
	Status EntityStatus
	Detail string
	Err    error
}

// BatchResult per-entity outcomes of one batch run
// Errors never abort the batch, they are collected here
type BatchResult struct {
	Name     string
	Results  []EntityResult
	Counters map[string]int
	Duration time.Duration
}

// NewBatchResult creates an empty batch result
func NewBatchResult(name string) *BatchResult {
	return &BatchResult{Name: name, Counters: make(map[string]int)}
}

// OK records a successfully processed entity
func (b *BatchResult) OK(kind string, id int64, detail string) {
	b.Results = append(b.Results, EntityResult{Kind: kind, ID: id, Status: EntityOK, Detail: detail})
}

// Skip records an entity skipped by policy or missing data
func (b *BatchResult) Skip(kind string, id int64, reason string) {
	b.Results = append(b.Results, EntityResult{Kind: kind, ID: id, Status: EntitySkipped, Detail: reason})
}

// Fail records an entity that failed
func (b *BatchResult) Fail(kind string, id int64, err error) {
	b.Results = append(b.Results, EntityResult{Kind: kind, ID: id, Status: EntityError, Err: err})
}

// Inc increments a named counter (created/updated/sent, ...)
func (b *BatchResult) Inc(counter string) {
	b.Counters[counter]++
}

// Merge appends results and counters of another batch
func (b *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	b.Results = append(b.Results, other.Results...)
	for k, v := range other.Counters {
		b.Counters[k] += v
	}
}

// Count returns the number of entities with the status
func (b *BatchResult) Count(status EntityStatus) int {
	n := 0
	for _, r := range b.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Errors returns failed entity results
func (b *BatchResult) Errors() []EntityResult {
	out := make([]EntityResult, 0)
	for _, r := range b.Results {
		if r.Status == EntityError {
			out = append(out, r)
		}
	}
	return out
}

// Summary one-line tick summary
func (b *BatchResult) Summary() string {
	s := fmt.Sprintf("%s: processed=%d ok=%d skipped=%d errors=%d",
		b.Name, len(b.Results), b.Count(EntityOK), b.Count(EntitySkipped), b.Count(EntityError))
	for _, k := range sortedKeys(b.Counters) {
		s += fmt.Sprintf(" %s=%d", k, b.Counters[k])
	}
	if b.Duration > 0 {
		s += fmt.Sprintf(" duration=%s", b.Duration.Round(time.Millisecond))
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
