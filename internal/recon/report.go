package recon

// EntityKind distinguishes projects from items in report detail rows.
type EntityKind string

const (
	KindProject EntityKind = "project"
	KindItem    EntityKind = "item"
)

// ConflictRecord describes one pair the engine refused to write because both
// sides changed since the last sync. Listed individually in the summary so an
// operator can resolve it out-of-band and re-run.
type ConflictRecord struct {
	Kind      EntityKind
	TrackerID string
	BoardID   string
	Title     string
	Reason    string
}

// EntityError records a per-entity failure that did not abort the run.
type EntityError struct {
	Kind      EntityKind
	EntityID  string
	Operation string
	Err       error
}

func (e EntityError) Error() string {
	return string(e.Kind) + " " + e.EntityID + " (" + e.Operation + "): " + e.Err.Error()
}

// Report accumulates the outcome of reconciling one or more projects.
// It is only ever mutated by the goroutine running that reconciliation;
// the runner merges per-project reports.
type Report struct {
	ProjectsCreated    int
	ProjectsLinked     int
	ProjectsSynced     int
	ProjectsConflicted int

	ItemsCreated    int
	ItemsSyncedL2R  int
	ItemsSyncedR2L  int
	ItemsConflicted int

	Conflicts []ConflictRecord
	Errors    []EntityError
}

// Merge folds other into r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.ProjectsCreated += other.ProjectsCreated
	r.ProjectsLinked += other.ProjectsLinked
	r.ProjectsSynced += other.ProjectsSynced
	r.ProjectsConflicted += other.ProjectsConflicted
	r.ItemsCreated += other.ItemsCreated
	r.ItemsSyncedL2R += other.ItemsSyncedL2R
	r.ItemsSyncedR2L += other.ItemsSyncedR2L
	r.ItemsConflicted += other.ItemsConflicted
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
	r.Errors = append(r.Errors, other.Errors...)
}

// TotalCreates returns how many records were (or would be) created.
func (r *Report) TotalCreates() int {
	return r.ProjectsCreated + r.ItemsCreated
}

func (r *Report) addConflict(c ConflictRecord) {
	if c.Kind == KindProject {
		r.ProjectsConflicted++
	} else {
		r.ItemsConflicted++
	}
	r.Conflicts = append(r.Conflicts, c)
}

func (r *Report) addError(kind EntityKind, entityID, operation string, err error) {
	r.Errors = append(r.Errors, EntityError{
		Kind:      kind,
		EntityID:  entityID,
		Operation: operation,
		Err:       err,
	})
}
