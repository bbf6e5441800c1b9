package evolution

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gep/internal/logging"
)

// =============================================================================
// GEP LOOP ORCHESTRATOR
// =============================================================================
// Drives one record (or a batch) through the six stages, short-circuiting on
// missing signal or stage failure. Every run terminates in exactly one of
// three states: skipped, failed, or success. The orchestrator is the single
// place where an unexpected stage panic is caught; Process never panics to
// its caller.

// Config carries the tunable knobs of the pipeline. The zero value selects
// all defaults.
type Config struct {
	StagnationThreshold int           // repeats before stagnation (default 3)
	ValidationTimeout   time.Duration // sandbox execution bound (default 5s)
	NamePrefix          string        // auto-generated gene name prefix (default "auto")
	Workers             int           // concurrent batch workers (default 1)
}

// Stage interfaces. The concrete stages satisfy these; tests substitute
// their own.
type (
	// RecordScanner detects issues in single records and batches.
	RecordScanner interface {
		Scan(LogRecord) ScanResult
		DetectStagnation([]LogRecord) ScanResult
	}
	// Signaler converts scan outcomes into evolution signals.
	Signaler interface {
		Generate(ScanResult) EvolutionSignal
	}
	// Classifier maps signals into actionable intents.
	Classifier interface {
		Classify(EvolutionSignal) Intent
	}
	// FragmentMutator synthesizes candidate fragments from intents.
	FragmentMutator interface {
		Mutate(Intent) MutationResult
	}
	// FragmentValidator checks candidate fragments.
	FragmentValidator interface {
		ValidateCode(context.Context, string) ValidationResult
		ValidatePrompt(string) ValidationResult
	}
	// GeneSolidifier converts validated mutations into gene records.
	GeneSolidifier interface {
		Solidify(MutationResult, ValidationResult, string) *GeneData
	}
)

// Loop is the pipeline orchestrator.
type Loop struct {
	scanner    RecordScanner
	signals    Signaler
	intents    Classifier
	mutator    FragmentMutator
	validator  FragmentValidator
	solidifier GeneSolidifier
	workers    int
}

// LoopOption overrides a stage, mainly for tests.
type LoopOption func(*Loop)

// WithScanner substitutes the scanner stage.
func WithScanner(s RecordScanner) LoopOption { return func(l *Loop) { l.scanner = s } }

// WithSignaler substitutes the signal generation stage.
func WithSignaler(s Signaler) LoopOption { return func(l *Loop) { l.signals = s } }

// WithClassifier substitutes the intent classification stage.
func WithClassifier(c Classifier) LoopOption { return func(l *Loop) { l.intents = c } }

// WithMutator substitutes the mutation stage.
func WithMutator(m FragmentMutator) LoopOption { return func(l *Loop) { l.mutator = m } }

// WithValidator substitutes the validation stage.
func WithValidator(v FragmentValidator) LoopOption { return func(l *Loop) { l.validator = v } }

// WithSolidifier substitutes the solidification stage.
func WithSolidifier(s GeneSolidifier) LoopOption { return func(l *Loop) { l.solidifier = s } }

// NewLoop builds a loop from config, wiring the default stages, then applies
// any overrides.
func NewLoop(cfg Config, opts ...LoopOption) *Loop {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	l := &Loop{
		scanner:    NewScanner(cfg.StagnationThreshold),
		signals:    NewSignalGenerator(),
		intents:    NewIntentClassifier(),
		mutator:    NewMutator(),
		validator:  NewValidator(cfg.ValidationTimeout),
		solidifier: NewSolidifier(cfg.NamePrefix),
		workers:    workers,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Scanner exposes the scanner stage for callers that run batch-level
// stagnation analysis alongside the loop.
func (l *Loop) Scanner() RecordScanner {
	return l.scanner
}

// Process runs one record through the full pipeline. Any panic raised by a
// stage is converted into a failed outcome; the method never panics.
func (l *Loop) Process(ctx context.Context, rec LogRecord) (result LoopResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.LoopError("stage panic: %v", r)
			result = LoopResult{
				Status:  StatusFailed,
				Failure: FailureUnexpected,
				Error:   fmt.Sprintf("unexpected fault in evolution loop: %v", r),
			}
		}
	}()

	// Gate 1: scan.
	scan := l.scanner.Scan(rec)
	if !scan.HasIssue {
		logging.LoopDebug("record from %q is clean, skipping", rec.Source)
		return LoopResult{
			Status:  StatusSkipped,
			Failure: FailureNoIssue,
			Scan:    &scan,
			Error:   "no issue detected in log record",
		}
	}

	// Gate 2: signal.
	signal := l.signals.Generate(scan)
	if signal.Type == SignalNone {
		return LoopResult{
			Status:  StatusSkipped,
			Failure: FailureNoSignal,
			Scan:    &scan,
			Signal:  &signal,
			Error:   "no evolution signal generated",
		}
	}

	// Gate 3: intent. Classification always proceeds.
	intent := l.intents.Classify(signal)

	// Gate 4: mutate.
	mutation := l.mutator.Mutate(intent)
	if !mutation.Success {
		return LoopResult{
			Status:   StatusFailed,
			Failure:  FailureMutation,
			Scan:     &scan,
			Signal:   &signal,
			Intent:   &intent,
			Mutation: &mutation,
			Error:    "mutation generation failed",
		}
	}

	// Gate 5: validate whichever fragment kind the mutation produced.
	var validation ValidationResult
	switch {
	case mutation.Code != "":
		validation = l.validator.ValidateCode(ctx, mutation.Code)
	case mutation.Prompt != "":
		validation = l.validator.ValidatePrompt(mutation.Prompt)
	default:
		return LoopResult{
			Status:   StatusFailed,
			Failure:  FailureNothingToCheck,
			Scan:     &scan,
			Signal:   &signal,
			Intent:   &intent,
			Mutation: &mutation,
			Error:    "no code or prompt to validate",
		}
	}
	if !validation.Passed {
		return LoopResult{
			Status:     StatusFailed,
			Failure:    FailureValidation,
			Scan:       &scan,
			Signal:     &signal,
			Intent:     &intent,
			Mutation:   &mutation,
			Validation: &validation,
			Error:      fmt.Sprintf("validation failed: %s", validation.Error),
		}
	}

	// Gate 6: solidify.
	gene := l.solidifier.Solidify(mutation, validation, "")
	if gene == nil {
		return LoopResult{
			Status:     StatusFailed,
			Failure:    FailureSolidification,
			Scan:       &scan,
			Signal:     &signal,
			Intent:     &intent,
			Mutation:   &mutation,
			Validation: &validation,
			Error:      "failed to solidify gene",
		}
	}

	logging.Loop("record from %q evolved into gene %s", rec.Source, gene.ID)
	return LoopResult{
		Status:     StatusSuccess,
		Scan:       &scan,
		Signal:     &signal,
		Intent:     &intent,
		Mutation:   &mutation,
		Validation: &validation,
		Gene:       gene,
	}
}

// ProcessBatch applies Process to each record independently, in input
// order. One record's failure never affects another's outcome.
func (l *Loop) ProcessBatch(ctx context.Context, recs []LogRecord) []LoopResult {
	results := make([]LoopResult, len(recs))
	for i, rec := range recs {
		results[i] = l.Process(ctx, rec)
	}
	return results
}

// ProcessBatchConcurrent processes a batch across the configured number of
// workers. Records carry no ordering dependency between each other, so the
// only guarantee kept is that results land at their record's index.
func (l *Loop) ProcessBatchConcurrent(ctx context.Context, recs []LogRecord) []LoopResult {
	if l.workers <= 1 || len(recs) < 2 {
		return l.ProcessBatch(ctx, recs)
	}

	results := make([]LoopResult, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = l.Process(ctx, rec)
			return nil
		})
	}
	// Workers never return errors; Process converts faults to results.
	_ = g.Wait()
	return results
}
