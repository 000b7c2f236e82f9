package engine

import "time"

// Record is a read-only snapshot of one stored item, as provided by the
// record source for the duration of a single detection run.
type Record struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupKind distinguishes exact fingerprint matches from near matches.
type GroupKind string

const (
	GroupExact GroupKind = "exact"
	GroupNear  GroupKind = "near"
)

// DuplicateGroup is an ordered set of at least two records considered
// duplicates of each other. Member order is the input order, which the
// retention policies rely on.
type DuplicateGroup struct {
	Kind        GroupKind   `json:"kind"`
	Fingerprint Fingerprint `json:"fingerprint,omitempty"`
	Members     []Record    `json:"members"`
	// MinSimilarity is the lowest pairwise similarity inside a near group.
	// Transitive grouping means it can fall below the run threshold.
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// RetentionDecision marks exactly one member of a group as the survivor.
type RetentionDecision struct {
	Policy Policy    `json:"policy"`
	Group  GroupKind `json:"group_kind"`
	Keep   Record    `json:"keep"`
	Remove []Record  `json:"remove"`
}

// RecordError reports a per-record failure that excluded the record from
// grouping without aborting the run.
type RecordError struct {
	RecordID string `json:"record_id"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// DetectionResult aggregates everything one run produced. It is created
// fresh per run and holds no long-lived state.
type DetectionResult struct {
	Mode        Mode                `json:"mode"`
	Threshold   float64             `json:"threshold"`
	ExactGroups []DuplicateGroup    `json:"exact_groups"`
	NearGroups  []DuplicateGroup    `json:"near_groups"`
	Decisions   []RetentionDecision `json:"decisions,omitempty"`
	Processed   int                 `json:"processed"`
	Failed      int                 `json:"failed"`
	Errors      []RecordError       `json:"errors,omitempty"`
}

// RemovableIDs collects the ids every retention decision marked for removal.
func (r *DetectionResult) RemovableIDs() []string {
	var ids []string
	for _, d := range r.Decisions {
		for _, rec := range d.Remove {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}
