package diff

import "github.com/ibeckermayer/feedsync/internal/types"

// Bump is a seen-count increment for a record whose text is already stored,
// or will be once the inserts of the same plan are written.
type Bump struct {
	Record types.Record

	// InBatch marks a repeat of a record inserted by the same plan
	InBatch bool
}

// Plan is the outcome of partitioning one batch
type Plan struct {
	Insert []types.Record
	Bump   []Bump
}

// Partition splits records into new rows and seen-count bumps. Insert keeps
// extraction order. A fingerprint repeated within records is inserted once;
// its later occurrences become bumps against that row. Records without a
// fingerprint are dropped.
func Partition(ix *Index, records []types.Record) Plan {
	var plan Plan
	pending := make(map[string]struct{})
	for _, rec := range records {
		if rec.Fingerprint == "" {
			continue
		}
		if _, ok := pending[rec.Fingerprint]; ok {
			plan.Bump = append(plan.Bump, Bump{Record: rec, InBatch: true})
			continue
		}
		if _, ok := ix.Lookup(rec.Fingerprint); ok {
			plan.Bump = append(plan.Bump, Bump{Record: rec})
			continue
		}
		pending[rec.Fingerprint] = struct{}{}
		plan.Insert = append(plan.Insert, rec)
	}
	return plan
}
