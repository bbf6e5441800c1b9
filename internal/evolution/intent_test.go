package evolution

import (
	"math"
	"reflect"
	"testing"
)

func TestClassify_ActionMapping(t *testing.T) {
	c := NewIntentClassifier()

	tests := []struct {
		signalType SignalType
		want       ActionType
	}{
		{SignalRepair, ActionFix},
		{SignalImprove, ActionOptimize},
		{SignalInnovate, ActionExplore},
		{"garbled", ActionFix}, // default
	}

	for _, tt := range tests {
		intent := c.Classify(EvolutionSignal{Type: tt.signalType})
		if intent.Action != tt.want {
			t.Errorf("Classify(%q).Action = %q, want %q", tt.signalType, intent.Action, tt.want)
		}
	}
}

func TestClassify_TargetInference(t *testing.T) {
	c := NewIntentClassifier()

	tests := []struct {
		name     string
		patterns []string
		want     string
	}{
		{"connection", []string{"ConnectionError"}, "database_connection"},
		{"timeout", []string{"TimeoutError"}, "api_timeout"},
		{"key", []string{"KeyError"}, "data_access"},
		{"value", []string{"ValueError"}, "data_validation"},
		{"not found", []string{"NotFoundError"}, "resource_lookup"},
		{"first match wins by list order", []string{"Error", "TimeoutError", "ConnectionError"}, "api_timeout"},
		{"no match", []string{"Exception", "Failed"}, TargetUnknown},
		{"empty", nil, TargetUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(EvolutionSignal{Type: SignalRepair, Patterns: tt.patterns})
			if intent.Target != tt.want {
				t.Errorf("Target = %q, want %q", intent.Target, tt.want)
			}
		})
	}
}

func TestClassify_Confidence(t *testing.T) {
	c := NewIntentClassifier()

	tests := []struct {
		name     string
		patterns int
		priority int
		want     float64
	}{
		{"base only", 0, 0, 0.7},
		{"one pattern", 1, 0, 0.8},
		{"pattern bonus capped at two", 5, 0, 0.9},
		{"priority bonus", 0, 5, 0.75},
		{"combined", 1, 5, 0.85},
		{"hard cap at one", 5, 10, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns := make([]string, tt.patterns)
			for i := range patterns {
				patterns[i] = "Exception"
			}
			intent := c.Classify(EvolutionSignal{Type: SignalRepair, Patterns: patterns, Priority: tt.priority})
			if math.Abs(intent.Confidence-tt.want) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", intent.Confidence, tt.want)
			}
		})
	}
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	c := NewIntentClassifier()

	// Confidence stays within [0.7, 1.0] for any signal shape.
	for patterns := 0; patterns <= 12; patterns++ {
		for priority := 0; priority <= 10; priority++ {
			ps := make([]string, patterns)
			intent := c.Classify(EvolutionSignal{Type: SignalRepair, Patterns: ps, Priority: priority})
			if intent.Confidence < 0.7 || intent.Confidence > 1.0 {
				t.Fatalf("confidence %v out of bounds for %d patterns, priority %d",
					intent.Confidence, patterns, priority)
			}
		}
	}
}

func TestClassify_ContextExtension(t *testing.T) {
	c := NewIntentClassifier()

	sig := EvolutionSignal{
		Type:     SignalRepair,
		Patterns: []string{"ValueError"},
		Priority: 9,
		Context: map[string]any{
			"source": "parser",
			// Pre-existing keys with the reserved names lose the collision.
			"patterns": "stale",
			"priority": "stale",
		},
	}
	intent := c.Classify(sig)

	if intent.Context["source"] != "parser" {
		t.Errorf("source = %v, want parser", intent.Context["source"])
	}
	if !reflect.DeepEqual(intent.Context["patterns"], []string{"ValueError"}) {
		t.Errorf("patterns = %v, want [ValueError]", intent.Context["patterns"])
	}
	if intent.Context["priority"] != 9 {
		t.Errorf("priority = %v, want 9", intent.Context["priority"])
	}
}
