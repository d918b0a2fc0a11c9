package sync

import (
	"fmt"
	"time"
)

// Phase is the step a sync cycle is in
type Phase string

const (
	// PhaseIdle means no cycle is running
	PhaseIdle Phase = "Idle"
	// PhaseFetching means the feed is being downloaded
	PhaseFetching Phase = "Fetching"
	// PhaseUpserting means feed records are being written to the catalog
	PhaseUpserting Phase = "Upserting"
	// PhaseEvicting means stale catalog entries are being removed
	PhaseEvicting Phase = "Evicting"
)

// Op names the step a record failed in
type Op string

// Record operations
const (
	OpParse  Op = "parse"
	OpLookup Op = "lookup"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RecordError is a failure confined to one record. It never aborts a cycle.
type RecordError struct {
	// Index is the feed position for upsert failures and -1 for deletes
	Index int    `json:"index"`
	SKU   string `json:"sku,omitempty"`
	ID    string `json:"id,omitempty"`
	Op    Op     `json:"op"`
	Err   error  `json:"-"`
}

func (e *RecordError) Error() string {
	key := e.SKU
	if key == "" {
		key = e.ID
	}
	if key == "" {
		key = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, key, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one cycle. It is returned on failure too, so that
// whatever was done before the failure is still reported.
type Result struct {
	// Hash is the SHA-256 of the feed body
	Hash string
	// Total is the feed size before truncation
	Total int
	// Fetched is the number of well-formed records after truncation
	Fetched int
	// Skipped is the number of malformed records after truncation
	Skipped int
	// Filtered is the number of well-formed records removed by the feed filter
	Filtered int

	Created int
	Updated int
	// Failed counts records whose lookup, create or update failed
	Failed int

	Evicted         int
	EvictFailed     int
	EvictCutoff     time.Time
	EvictionSkipped bool
	Interrupted     bool

	Errors []RecordError

	StartedAt  time.Time
	FinishedAt time.Time
}

// Upserted is the number of records stored successfully
func (r *Result) Upserted() int {
	return r.Created + r.Updated
}

// Duration is the wall time of the cycle
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Condition reasons reported on a failed cycle
const (
	ReasonCatalogUnavailable = "CatalogUnavailable"
	ReasonFetchFailed        = "FetchFailed"
	ReasonParseFailed        = "ParseFailed"
	ReasonInterrupted        = "Interrupted"
	ReasonEvictionFailed     = "EvictionFailed"
)

// Condition types
const (
	// ConditionSourceAvailable indicates whether the feed could be read
	ConditionSourceAvailable = "SourceAvailable"

	// ConditionCatalogAvailable indicates whether the catalog answered
	ConditionCatalogAvailable = "CatalogAvailable"

	// ConditionSyncSuccessful indicates whether the last cycle completed
	ConditionSyncSuccessful = "SyncSuccessful"
)

// Error represents a cycle-level failure with condition information
type Error struct {
	Err             error
	Message         string
	ConditionType   string
	ConditionReason string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
