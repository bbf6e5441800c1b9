package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gep/internal/logging"
)

// =============================================================================
// SOLIDIFIER
// =============================================================================
// Converts a mutation that passed validation into a persistable gene record.
// The gene ID is content-addressed: identical code+prompt always hashes to
// the same ID, letting the persistence collaborator de-duplicate.

// DefaultNamePrefix is used for auto-generated gene names.
const DefaultNamePrefix = "auto"

// geneIDLength is the number of hex digits kept from the content digest.
const geneIDLength = 16

// Solidifier creates gene records from validated mutations. The auto-name
// counter is instance-private and atomic, so a single solidifier may be
// shared across batch workers.
type Solidifier struct {
	prefix  string
	counter atomic.Int64
}

// NewSolidifier creates a solidifier. An empty prefix falls back to the
// default.
func NewSolidifier(prefix string) *Solidifier {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return &Solidifier{prefix: prefix}
}

// Solidify builds a gene from a mutation/validation pair, or returns nil
// when the mutation did not succeed or validation did not pass. When name is
// empty a unique name is generated from the instance counter and timestamp.
func (s *Solidifier) Solidify(mutation MutationResult, validation ValidationResult, name string) *GeneData {
	if !mutation.Success || !validation.Passed {
		logging.SolidifyDebug("not eligible: mutation success=%v validation passed=%v", mutation.Success, validation.Passed)
		return nil
	}

	if name == "" {
		n := s.counter.Add(1)
		name = fmt.Sprintf("%s_gene_%d_%s", s.prefix, n, time.Now().Format("20060102150405"))
		logging.SolidifyDebug("auto-generated name %s", name)
	}

	gene := &GeneData{
		ID:             GeneID(mutation.Code, mutation.Prompt),
		Name:           name,
		Description:    mutation.Description,
		Implementation: mutation.Code,
		PromptTemplate: mutation.Prompt,
		Status:         GeneValidated,
		SuccessRate:    successRate(validation),
		ContextTags:    extractTags(mutation),
	}

	logging.Solidify("gene %s (%s) success_rate=%.2f tags=%v", gene.ID, gene.Name, gene.SuccessRate, gene.ContextTags)
	return gene
}

// GeneID derives the content-addressed identifier for a code/prompt pair.
// Deterministic across instances and processes.
func GeneID(code, prompt string) string {
	sum := sha256.Sum256([]byte(code + prompt))
	return "gene_" + hex.EncodeToString(sum[:])[:geneIDLength]
}

// successRate is the fraction of tests that passed, or a plain pass/fail
// score when validation ran without tests.
func successRate(validation ValidationResult) float64 {
	if len(validation.TestResults) == 0 {
		if validation.Passed {
			return 1.0
		}
		return 0.0
	}
	passed := 0
	for _, t := range validation.TestResults {
		if t.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(validation.TestResults))
}

// extractTags derives context tags from the mutation: fragment kind plus
// keywords found in the description. The result is de-duplicated; order is
// not significant.
func extractTags(mutation MutationResult) []string {
	seen := map[string]bool{"auto-generated": true}
	tags := []string{"auto-generated"}
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	if mutation.Code != "" {
		add("code")
	}
	if mutation.Prompt != "" {
		add("prompt")
	}

	desc := strings.ToLower(mutation.Description)
	if strings.Contains(desc, "fix") || strings.Contains(desc, "repair") {
		add("fix")
	}
	if strings.Contains(desc, "optimize") {
		add("optimization")
	}
	if strings.Contains(desc, "retry") {
		add("resilience")
	}
	if strings.Contains(desc, "timeout") {
		add("timeout-handling")
	}

	return tags
}
