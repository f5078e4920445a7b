package domain

import "time"

// Segment is one ordered fragment of a contract produced by ingestion.
type Segment struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is a raw contract handed to the segment source.
type Document struct {
	Name    string
	Format  string
	Content []byte
}

// RiskDefinition is one catalogue entry: a category and its natural-language hypothesis.
type RiskDefinition struct {
	Category   string
	Hypothesis string
}

// Match links a segment to a risk category it resembles.
type Match struct {
	RiskCategory    string  `json:"risk_category"`
	RiskDefinition  string  `json:"risk_definition"`
	SegmentID       string  `json:"chunk_id"`
	SegmentText     string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Action is the outcome of the clause action policy.
type Action string

const (
	ActionRewrite    Action = "rewrite"
	ActionReviewOnly Action = "review_only"
)

// RewriteResult holds a generated clause and whether it passed the safety validator.
type RewriteResult struct {
	SuggestedText string `json:"suggested_text"`
	IsValidated   bool   `json:"is_validated"`
}

// RewriteOutcome classifies what happened to a rewrite attempt.
type RewriteOutcome string

const (
	RewriteValidated        RewriteOutcome = "validated"
	RewriteRejected         RewriteOutcome = "rejected"
	RewriteGenerationFailed RewriteOutcome = "generation_failed"
)

// AssessedMatch is a Match after policy and, when allowed, rewriting.
type AssessedMatch struct {
	Match
	Action          Action         `json:"action"`
	SuggestedClause string         `json:"suggested_clause"`
	Rewrite         *RewriteResult `json:"rewrite,omitempty"`
}

// ReportStatus enumerates analysis outcomes.
type ReportStatus string

const (
	StatusSuccess ReportStatus = "success"
	StatusFailed  ReportStatus = "failed"
)

// Report is the per-document analysis result returned to callers and persisted for audit.
type Report struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	NumChunks int             `json:"num_chunks"`
	NumRisks  int             `json:"num_risks"`
	Risks     []AssessedMatch `json:"risks"`
	Status    ReportStatus    `json:"status"`
	Message   string          `json:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Categories returns the distinct risk categories of the report in first-seen order.
func (r Report) Categories() []string {
	seen := make(map[string]struct{}, len(r.Risks))
	out := make([]string, 0, len(r.Risks))
	for _, risk := range r.Risks {
		if _, ok := seen[risk.RiskCategory]; ok {
			continue
		}
		seen[risk.RiskCategory] = struct{}{}
		out = append(out, risk.RiskCategory)
	}
	return out
}
