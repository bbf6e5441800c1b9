package evolution

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProcess_SkippedWhenNoIssue(t *testing.T) {
	loop := NewLoop(Config{})

	tests := []LogRecord{
		{Level: "INFO", Message: "ConnectionError mentioned, but info"},
		{Level: "DEBUG", Message: "tracing"},
		{Level: "WARNING", Message: "nothing pattern-shaped here"},
	}

	for _, rec := range tests {
		res := loop.Process(context.Background(), rec)
		if res.Status != StatusSkipped {
			t.Errorf("Process(%q/%q) = %s, want skipped", rec.Level, rec.Message, res.Status)
		}
		if res.Failure != FailureNoIssue {
			t.Errorf("Failure = %q, want %q", res.Failure, FailureNoIssue)
		}
		if res.Scan == nil {
			t.Error("skipped result lost the scan artifact")
		}
		if res.Error == "" {
			t.Error("skipped result has no explanation")
		}
	}
}

func TestProcess_EndToEndSuccess(t *testing.T) {
	loop := NewLoop(Config{})

	res := loop.Process(context.Background(), LogRecord{
		Level:   "ERROR",
		Message: "ConnectionError: failed to connect",
		Source:  "orders-api",
	})

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %s (error: %s), want success", res.Status, res.Error)
	}
	if res.Intent == nil || res.Intent.Target != "database_connection" {
		t.Fatalf("Intent = %+v, want target database_connection", res.Intent)
	}
	if res.Gene == nil || res.Gene.Implementation == "" {
		t.Fatal("success without a gene implementation")
	}
	if res.Scan == nil || res.Signal == nil || res.Mutation == nil || res.Validation == nil {
		t.Error("intermediate artifacts missing from a success result")
	}
	if res.Signal.Priority != 10 {
		t.Errorf("Priority = %d, want 10", res.Signal.Priority)
	}
	if res.Gene.Status != GeneValidated {
		t.Errorf("gene status = %q, want validated", res.Gene.Status)
	}
}

func TestProcess_WarningProducesPromptGene(t *testing.T) {
	loop := NewLoop(Config{})

	res := loop.Process(context.Background(), LogRecord{
		Level:   "WARNING",
		Message: "ValueError: odd payload shape",
	})

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %s (error: %s), want success", res.Status, res.Error)
	}
	// improve -> optimize -> prompt fragment path.
	if res.Gene.PromptTemplate == "" {
		t.Error("optimize path produced no prompt template")
	}
	if res.Gene.Implementation != "" {
		t.Error("optimize path produced code")
	}
}

// fixedClassifier returns a canned intent regardless of the signal.
type fixedClassifier struct {
	intent Intent
}

func (f *fixedClassifier) Classify(EvolutionSignal) Intent { return f.intent }

func TestProcess_MutationFailureTerminatesFailed(t *testing.T) {
	loop := NewLoop(Config{}, WithClassifier(&fixedClassifier{
		intent: Intent{Action: "unrecognized_verb", Target: "api_timeout"},
	}))

	res := loop.Process(context.Background(), LogRecord{
		Level:   "ERROR",
		Message: "TimeoutError: upstream slow",
	})

	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if res.Failure != FailureMutation {
		t.Errorf("Failure = %q, want %q", res.Failure, FailureMutation)
	}
	if !strings.Contains(res.Error, "mutation generation failed") {
		t.Errorf("Error = %q, want mutation-stage diagnostic", res.Error)
	}
	if res.Mutation == nil || res.Mutation.Success {
		t.Errorf("Mutation artifact = %+v", res.Mutation)
	}
	if res.Validation != nil || res.Gene != nil {
		t.Error("stages after the failure still produced artifacts")
	}
}

// emptyMutator produces a successful mutation with no fragment at all.
type emptyMutator struct{}

func (emptyMutator) Mutate(Intent) MutationResult {
	return MutationResult{Success: true, Description: "hollow"}
}

func TestProcess_NothingToValidate(t *testing.T) {
	loop := NewLoop(Config{}, WithMutator(emptyMutator{}))

	res := loop.Process(context.Background(), LogRecord{Level: "ERROR", Message: "KeyError: gone"})
	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if res.Failure != FailureNothingToCheck {
		t.Errorf("Failure = %q, want %q", res.Failure, FailureNothingToCheck)
	}
}

// brokenSignaler panics to simulate a defective stage.
type brokenSignaler struct{}

func (brokenSignaler) Generate(ScanResult) EvolutionSignal {
	panic("signal stage exploded")
}

func TestProcess_RecoversStagePanic(t *testing.T) {
	loop := NewLoop(Config{}, WithSignaler(brokenSignaler{}))

	res := loop.Process(context.Background(), LogRecord{Level: "ERROR", Message: "boom"})
	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if res.Failure != FailureUnexpected {
		t.Errorf("Failure = %q, want %q", res.Failure, FailureUnexpected)
	}
	if !strings.Contains(res.Error, "signal stage exploded") {
		t.Errorf("Error = %q, want the panic message", res.Error)
	}
}

func TestProcessBatch_OrderPreserved(t *testing.T) {
	loop := NewLoop(Config{})
	recs := []LogRecord{
		{Level: "INFO", Message: "fine"},
		{Level: "ERROR", Message: "ConnectionError: refused"},
		{Level: "WARNING", Message: "no pattern"},
		{Level: "ERROR", Message: "TimeoutError: slow"},
	}

	results := loop.ProcessBatch(context.Background(), recs)
	if len(results) != len(recs) {
		t.Fatalf("got %d results, want %d", len(results), len(recs))
	}

	want := []LoopStatus{StatusSkipped, StatusSuccess, StatusSkipped, StatusSuccess}
	for i, res := range results {
		if res.Status != want[i] {
			t.Errorf("result[%d] = %s (error: %s), want %s", i, res.Status, res.Error, want[i])
		}
	}
}

func TestProcessBatchConcurrent_MatchesSequential(t *testing.T) {
	recs := []LogRecord{
		{Level: "ERROR", Message: "ConnectionError: refused"},
		{Level: "INFO", Message: "fine"},
		{Level: "ERROR", Message: "KeyError: missing"},
		{Level: "WARNING", Message: "ValueError: odd shape"},
		{Level: "DEBUG", Message: "noise"},
		{Level: "ERROR", Message: "NotFoundError: who"},
	}

	sequential := NewLoop(Config{}).ProcessBatch(context.Background(), recs)
	concurrent := NewLoop(Config{Workers: 4}).ProcessBatchConcurrent(context.Background(), recs)

	if len(concurrent) != len(sequential) {
		t.Fatalf("got %d results, want %d", len(concurrent), len(sequential))
	}
	for i := range sequential {
		if concurrent[i].Status != sequential[i].Status {
			t.Errorf("result[%d] = %s, sequential said %s", i, concurrent[i].Status, sequential[i].Status)
		}
	}

	// Content addressing holds across both runs: the same record yields the
	// same gene id regardless of scheduling.
	if sequential[0].Gene.ID != concurrent[0].Gene.ID {
		t.Errorf("gene id diverged: %s vs %s", sequential[0].Gene.ID, concurrent[0].Gene.ID)
	}
}

func TestProcess_NeverPanics(t *testing.T) {
	// A loop whose every injected stage panics still returns a result.
	loop := NewLoop(Config{}, WithSignaler(brokenSignaler{}))

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Process panicked: %v", r)
		}
	}()
	for i := 0; i < 3; i++ {
		_ = loop.Process(context.Background(), LogRecord{Level: "ERROR", Message: "boom"})
	}
}
