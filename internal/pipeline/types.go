package pipeline

// Candidate is an unvalidated detection of a PII span proposed by a
// detector. Candidates live for one request only.
type Candidate struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"` // byte offset into the source, inclusive
	End        int     `json:"end"`   // byte offset into the source, exclusive
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// Status is the validation status of a candidate after reconciliation.
type Status string

const (
	// StatusValid means the candidate matched its assigned category.
	StatusValid Status = "VALID"
	// StatusCorrected means the candidate matched a different category.
	StatusCorrected Status = "CORRECTED"
	// StatusFiltered means the candidate was rejected.
	StatusFiltered Status = "FILTERED"
)

// Outcome is the reconciliation verdict for one surviving candidate.
type Outcome struct {
	Candidate        Candidate
	Status           Status
	OriginalCategory string
	FinalCategory    string // equals OriginalCategory unless CORRECTED
	Reason           string
}

// AcceptedEntity is a validated or corrected entity as returned to callers.
type AcceptedEntity struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Reason     string  `json:"reason"`
}

// RejectedEntity is a filtered candidate with the reason it was rejected.
type RejectedEntity struct {
	Text             string  `json:"text"`
	Start            int     `json:"start"`
	End              int     `json:"end"`
	OriginalCategory string  `json:"original_category"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// Summary aggregates the outcome counts of one reconciliation run.
type Summary struct {
	TotalValid      int      `json:"total_valid"`
	TotalFiltered   int      `json:"total_filtered"`
	CategoriesFound []string `json:"categories_found"`
	ValidationRate  float64  `json:"validation_rate"`
}

// Result is the full output of one reconciliation run.
type Result struct {
	Entities         []AcceptedEntity `json:"entities"`
	FilteredEntities []RejectedEntity `json:"filtered_entities"`
	Summary          Summary          `json:"summary"`
}
