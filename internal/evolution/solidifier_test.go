package evolution

import (
	"sort"
	"strings"
	"testing"
)

func TestSolidify_RequiresSuccessAndPass(t *testing.T) {
	s := NewSolidifier("")

	tests := []struct {
		name       string
		mutation   MutationResult
		validation ValidationResult
	}{
		{"failed mutation", MutationResult{Success: false, Code: "x := 1"}, ValidationResult{Passed: true}},
		{"failed validation", MutationResult{Success: true, Code: "x := 1"}, ValidationResult{Passed: false}},
		{"both failed", MutationResult{}, ValidationResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if gene := s.Solidify(tt.mutation, tt.validation, ""); gene != nil {
				t.Errorf("Solidify produced a gene: %+v", gene)
			}
		})
	}
}

func TestSolidify_ContentAddressedID(t *testing.T) {
	mutation := MutationResult{Success: true, Code: "x := 1 + 1", Description: "test"}
	validation := ValidationResult{Passed: true}

	// Identical content yields an identical id, even across instances.
	a := NewSolidifier("a").Solidify(mutation, validation, "")
	b := NewSolidifier("b").Solidify(mutation, validation, "")
	if a.ID != b.ID {
		t.Errorf("same content produced different ids: %s vs %s", a.ID, b.ID)
	}

	if !strings.HasPrefix(a.ID, "gene_") {
		t.Errorf("ID = %q, want gene_ prefix", a.ID)
	}
	if len(a.ID) != len("gene_")+geneIDLength {
		t.Errorf("ID length = %d, want %d hex digits after the prefix", len(a.ID), geneIDLength)
	}

	// Different content yields a different id.
	other := NewSolidifier("a").Solidify(MutationResult{Success: true, Code: "y := 2"}, validation, "")
	if other.ID == a.ID {
		t.Error("different content produced the same id")
	}

	// Prompt content participates in the hash.
	prompted := NewSolidifier("a").Solidify(MutationResult{Success: true, Code: "x := 1 + 1", Prompt: "p"}, validation, "")
	if prompted.ID == a.ID {
		t.Error("prompt content not hashed")
	}
}

func TestSolidify_AutoNames(t *testing.T) {
	s := NewSolidifier("")
	mutation := MutationResult{Success: true, Code: "x := 1"}
	validation := ValidationResult{Passed: true}

	first := s.Solidify(mutation, validation, "")
	second := s.Solidify(mutation, validation, "")

	if !strings.HasPrefix(first.Name, "auto_gene_1_") {
		t.Errorf("Name = %q, want auto_gene_1_ prefix", first.Name)
	}
	if !strings.HasPrefix(second.Name, "auto_gene_2_") {
		t.Errorf("Name = %q, want auto_gene_2_ prefix", second.Name)
	}
	if first.Name == second.Name {
		t.Error("auto-names collided within one instance")
	}

	// Explicit names are used verbatim and do not advance the counter.
	named := s.Solidify(mutation, validation, "retry_helper")
	if named.Name != "retry_helper" {
		t.Errorf("Name = %q, want retry_helper", named.Name)
	}
	third := s.Solidify(mutation, validation, "")
	if !strings.HasPrefix(third.Name, "auto_gene_3_") {
		t.Errorf("Name = %q, want auto_gene_3_ prefix", third.Name)
	}
}

func TestSolidify_SuccessRate(t *testing.T) {
	s := NewSolidifier("")
	mutation := MutationResult{Success: true, Code: "x := 1"}

	tests := []struct {
		name       string
		validation ValidationResult
		want       float64
	}{
		{
			name:       "no tests and passed",
			validation: ValidationResult{Passed: true},
			want:       1.0,
		},
		{
			name: "fraction of passing tests",
			validation: ValidationResult{Passed: true, TestResults: []TestOutcome{
				{Index: 1, Passed: true},
				{Index: 2, Passed: false},
				{Index: 3, Passed: true},
				{Index: 4, Passed: true},
			}},
			want: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gene := s.Solidify(mutation, tt.validation, "")
			if gene.SuccessRate != tt.want {
				t.Errorf("SuccessRate = %v, want %v", gene.SuccessRate, tt.want)
			}
		})
	}
}

func TestSolidify_ContextTags(t *testing.T) {
	s := NewSolidifier("")
	validation := ValidationResult{Passed: true}

	tests := []struct {
		name     string
		mutation MutationResult
		want     []string
	}{
		{
			name:     "code with retry description",
			mutation: MutationResult{Success: true, Code: "x := 1", Description: "Add retry logic for database connections"},
			want:     []string{"auto-generated", "code", "resilience"},
		},
		{
			name:     "code with timeout fix description",
			mutation: MutationResult{Success: true, Code: "x := 1", Description: "Fix timeout handling"},
			want:     []string{"auto-generated", "code", "fix", "timeout-handling"},
		},
		{
			name:     "prompt with optimize description",
			mutation: MutationResult{Success: true, Prompt: "go faster", Description: "Optimize the cache"},
			want:     []string{"auto-generated", "optimization", "prompt"},
		},
		{
			name:     "repair keyword maps to fix tag",
			mutation: MutationResult{Success: true, Code: "x := 1", Description: "Repair the connection pool"},
			want:     []string{"auto-generated", "code", "fix"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gene := s.Solidify(tt.mutation, validation, "")
			got := append([]string(nil), gene.ContextTags...)
			sort.Strings(got)
			sort.Strings(tt.want)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ContextTags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSolidify_Status(t *testing.T) {
	s := NewSolidifier("")
	gene := s.Solidify(MutationResult{Success: true, Code: "x := 1"}, ValidationResult{Passed: true}, "")
	if gene.Status != GeneValidated {
		t.Errorf("Status = %q, want %q", gene.Status, GeneValidated)
	}
}
