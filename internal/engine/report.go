package engine

import (
	"time"

	"github.com/google/uuid"
)

// SyncReport summarizes one buffer-to-main pass.
type SyncReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Processes  int `json:"processes"`
	Candidates int `json:"candidates"`

	Created   int `json:"created"`
	Unchanged int `json:"unchanged"`
	// Skipped counts triples whose columns are missing from the main graph.
	Skipped int `json:"skipped"`

	ChainFailures    int `json:"chain_failures"`
	ResolverFailures int `json:"resolver_failures"`
}

// UpdateReport summarizes one incremental update run.
type UpdateReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Since is the checkpoint the run requested changes after (zero for all).
	Since    time.Time `json:"since"`
	Fetched  int       `json:"fetched"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	// Rejected counts entities whose type is not the configured entity type.
	Rejected int       `json:"rejected"`

	// Checkpoint is the stored checkpoint after the run; Advanced reports
	// whether this run moved it.
	Checkpoint time.Time `json:"checkpoint"`
	Advanced   bool      `json:"advanced"`
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
