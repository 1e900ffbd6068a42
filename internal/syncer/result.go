package syncer

// Failure is one highlight that could not be stored.
type Failure struct {
	Text   string
	Reason string
}

// Result summarizes the sync of one book, or of a whole run once results
// are combined with Add.
type Result struct {
	FilePath    string
	BookID      uint
	BookCreated bool
	Inserted    int
	Duplicate   int
	Failed      int
	Failures    []Failure
	// BookErr is set when the book row itself could not be written; every
	// highlight of the book is then counted as failed.
	BookErr error
}

// Attempted is the number of highlights the sync looked at.
func (r Result) Attempted() int {
	return r.Inserted + r.Duplicate + r.Failed
}

// OK reports whether nothing failed.
func (r Result) OK() bool {
	return r.Failed == 0 && r.BookErr == nil
}

// Add folds other into r. Per-book identity fields are left untouched.
func (r *Result) Add(other Result) {
	r.Inserted += other.Inserted
	r.Duplicate += other.Duplicate
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

func (r *Result) fail(text string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Text: text, Reason: err.Error()})
}
