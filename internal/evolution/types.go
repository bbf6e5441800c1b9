// Package evolution implements the gene evolution pipeline: recurring
// operational problems observed in log records are converted into reusable,
// validated capability fragments ("genes"). The pipeline runs six stages in
// strict order - Scan, Signal, Intent, Mutate, Validate, Solidify - each a
// small transformer whose output feeds the next, composed by the Loop
// orchestrator.
package evolution

import "time"

// =============================================================================
// PIPELINE RECORDS
// =============================================================================
// Every record below is produced by one stage and consumed by the next. They
// are value types, immutable by convention; no stage mutates another stage's
// output.

// LogRecord is a single structured log entry fed into the pipeline.
// Level comparison is case-insensitive; Source is an opaque label.
type LogRecord struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// IssueType classifies what the scanner found.
type IssueType string

const (
	IssueError      IssueType = "error"
	IssueWarning    IssueType = "warning"
	IssueStagnation IssueType = "stagnation"
)

// ScanResult is the scanner's verdict on one record (or one batch, for
// stagnation analysis). HasIssue=false implies an empty IssueType and an
// empty pattern list.
type ScanResult struct {
	HasIssue  bool
	IssueType IssueType
	Patterns  []string
	Context   map[string]any
	RawLog    *LogRecord
}

// SignalType classifies the evolution action a signal calls for.
type SignalType string

const (
	SignalNone     SignalType = "none"
	SignalRepair   SignalType = "repair"
	SignalImprove  SignalType = "improve"
	SignalInnovate SignalType = "innovate"
)

// EvolutionSignal is a typed, prioritized indication that evolution action
// is warranted. Priority is clamped to [0, 10]; it is 0 only for SignalNone.
type EvolutionSignal struct {
	Type     SignalType
	Patterns []string
	Context  map[string]any
	Priority int
	Source   string
}

// ActionType is the concrete action an intent calls for.
type ActionType string

const (
	ActionFix      ActionType = "fix"
	ActionOptimize ActionType = "optimize"
	ActionExplore  ActionType = "explore"
)

// Intent is a classified action plus the component it targets. Confidence is
// always within [0.7, 1.0] for classifier-produced intents.
type Intent struct {
	Action     ActionType
	Target     string
	Context    map[string]any
	Confidence float64
}

// MutationResult is a candidate code or prompt fragment generated from an
// intent. Success means a candidate was produced, not that it is correct;
// correctness is the validator's concern.
type MutationResult struct {
	Success     bool
	Code        string
	Prompt      string
	Description string
	Changes     []string
}

// TestOutcome records one assertion expression's result during validation.
// Index is 1-based.
type TestOutcome struct {
	Index  int
	Passed bool
	Error  string
	Expr   string
}

// ValidationResult reports whether a candidate fragment survived validation.
type ValidationResult struct {
	Passed        bool
	Error         string
	Output        string
	ExecutionTime time.Duration
	TestResults   []TestOutcome
}

// GeneStatus is the lifecycle state of a solidified gene.
type GeneStatus string

const (
	// GeneValidated is the only status the pipeline itself produces.
	GeneValidated GeneStatus = "validated"
)

// GeneData is a solidified artifact ready for persistence. ID is derived
// from a content hash, so identical code+prompt always yields the same ID.
type GeneData struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Implementation string     `json:"implementation,omitempty"`
	PromptTemplate string     `json:"prompt_template,omitempty"`
	Status         GeneStatus `json:"status"`
	SuccessRate    float64    `json:"success_rate"`
	ContextTags    []string   `json:"context_tags"`
}

// =============================================================================
// LOOP OUTCOME
// =============================================================================

// LoopStatus is the terminal state of one pipeline run.
type LoopStatus string

const (
	StatusSuccess LoopStatus = "success"
	StatusFailed  LoopStatus = "failed"
	StatusSkipped LoopStatus = "skipped"
)

// FailureKind is the error taxonomy for non-success outcomes. Skips carry a
// benign kind; only FailureUnexpected indicates a defect in a stage.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNoIssue        FailureKind = "no_issue"
	FailureNoSignal       FailureKind = "no_signal"
	FailureMutation       FailureKind = "mutation_unavailable"
	FailureNothingToCheck FailureKind = "nothing_to_validate"
	FailureValidation     FailureKind = "validation_failed"
	FailureSolidification FailureKind = "solidification_unavailable"
	FailureUnexpected     FailureKind = "unexpected_fault"
)

// LoopResult carries the terminal status of one record's run plus every
// intermediate artifact produced before termination. Error is human-readable
// and set on every non-success outcome.
type LoopResult struct {
	Status     LoopStatus
	Failure    FailureKind
	Scan       *ScanResult
	Signal     *EvolutionSignal
	Intent     *Intent
	Mutation   *MutationResult
	Validation *ValidationResult
	Gene       *GeneData
	Error      string
}
