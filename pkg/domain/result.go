package domain

// Result is the outcome of a data store operation or an outbound notification.
type Result struct {
	OK         bool   `json:"ok"`
	Data       any    `json:"data,omitempty"`
	Error      *Error `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Success wraps a payload into a successful Result.
func Success(data any) Result {
	return Result{OK: true, Data: data}
}

// Failure converts err into a failed Result, reporting untyped errors under fallback.
func Failure(err error, fallback Code) Result {
	return Result{OK: false, Error: AsError(err, fallback)}
}

// ResolveReason explains why knowledge resolution did not produce an answer.
type ResolveReason string

const (
	ReasonSearchFailed  ResolveReason = "search_failed"
	ReasonLowConfidence ResolveReason = "low_confidence"
	ReasonLLMFailed     ResolveReason = "llm_failed"
	ReasonLLMException  ResolveReason = "llm_exception"
)

// ResolveResult is the outcome of knowledge resolution.
type ResolveResult struct {
	OK     bool          `json:"ok"`
	Reason ResolveReason `json:"reason,omitempty"`
	Answer string        `json:"answer,omitempty"`

	// Citations are the snippets backing an accepted answer.
	Citations []Snippet `json:"citations,omitempty"`
	// Results are the snippets inspected when the answer was rejected.
	Results []Snippet `json:"results,omitempty"`

	// BestScore is nil when resolution failed before scoring was known.
	BestScore *float64 `json:"best_score,omitempty"`
}

// OpsResult is the outcome of the operations dispatcher.
type OpsResult struct {
	Result
	Operation Operation `json:"operation,omitempty"`
}

// EscalationResult aggregates both downstream notifications of an escalation.
type EscalationResult struct {
	Reason    string `json:"reason"`
	Ticketing Result `json:"ticketing"`
	Intake    Result `json:"intake"`
}

// Snippet is a scored knowledge excerpt.
type Snippet struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// SearchQuery parameterizes a knowledge search.
type SearchQuery struct {
	AccountID     string
	Query         string
	TopK          int
	MinConfidence float64
}

// SearchResult is the ranked output of a knowledge search.
type SearchResult struct {
	Results        []Snippet `json:"results"`
	BestScore      float64   `json:"best_score"`
	MeetsThreshold bool      `json:"meets_threshold"`
}
