package status

import "time"

// SyncPhase represents the current phase of a synchronization operation
type SyncPhase string

const (
	// SyncPhaseSyncing means sync is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means sync completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means sync failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// MaxRecordErrors bounds the record errors kept in a status
const MaxRecordErrors = 50

// SyncStatus represents the state of the recurring sync job
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// CyclePhase is the step of the running cycle (Fetching, Upserting, Evicting)
	CyclePhase string `json:"cyclePhase,omitempty"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// ConditionReason is the machine-readable cause of the last failure
	ConditionReason string `json:"conditionReason,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// LastSyncHash is the hash of the last successfully synced feed
	LastSyncHash string `json:"lastSyncHash,omitempty"`

	// LastDuration is the wall time of the last finished cycle
	LastDuration string `json:"lastDuration,omitempty"`

	// Counts of the last finished cycle
	Counts Counts `json:"counts"`

	// RecordErrors holds up to MaxRecordErrors messages from the last cycle
	RecordErrors []string `json:"recordErrors,omitempty"`

	// IntervalMinutes is the interval the last cycle ran with
	IntervalMinutes int `json:"intervalMinutes,omitempty"`
}

// Counts are the per-cycle record tallies
type Counts struct {
	Total           int  `json:"total"`
	Fetched         int  `json:"fetched"`
	Skipped         int  `json:"skipped"`
	Filtered        int  `json:"filtered"`
	Created         int  `json:"created"`
	Updated         int  `json:"updated"`
	Failed          int  `json:"failed"`
	Evicted         int  `json:"evicted"`
	EvictFailed     int  `json:"evictFailed"`
	EvictionSkipped bool `json:"evictionSkipped"`
	Interrupted     bool `json:"interrupted"`
}
