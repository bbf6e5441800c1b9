package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gep/internal/evolution"
	"gep/internal/store"
)

// maxRecordLine bounds one JSONL record; log messages are short.
const maxRecordLine = 1 << 20

func newProcessCmd() *cobra.Command {
	var workers int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "process <logfile.jsonl>",
		Short: "Run log records through the evolution loop and store resulting genes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := readRecords(args[0])
			if err != nil {
				return err
			}
			if workers < 1 {
				workers = cfg.Evolution.Workers
			}
			logger.Info("processing records", zap.Int("count", len(recs)), zap.Int("workers", workers))

			loopCfg := evolution.Config{
				StagnationThreshold: cfg.Evolution.StagnationThreshold,
				ValidationTimeout:   cfg.ValidationTimeout(),
				NamePrefix:          cfg.Evolution.NamePrefix,
				Workers:             workers,
			}
			loop := evolution.NewLoop(loopCfg)
			results := loop.ProcessBatchConcurrent(cmd.Context(), recs)

			var db *store.Store
			if !dryRun {
				db, err = store.NewStore(filepath.Join(flagWorkspace, cfg.Store.DatabasePath))
				if err != nil {
					return err
				}
				defer db.Close()
			}

			counts := map[evolution.LoopStatus]int{}
			for i, res := range results {
				counts[res.Status]++
				printResult(cmd, i, res)
				if db == nil {
					continue
				}
				if err := recordOutcome(db, res); err != nil {
					logger.Warn("failed to persist outcome", zap.Int("record", i), zap.Error(err))
				}
			}

			cmd.Printf("\n%d records: %d success, %d failed, %d skipped\n",
				len(results), counts[evolution.StatusSuccess],
				counts[evolution.StatusFailed], counts[evolution.StatusSkipped])
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent batch workers (0 = config default)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip gene and event persistence")
	return cmd
}

func newStagnationCmd() *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "stagnation <logfile.jsonl>",
		Short: "Analyze a batch of records for repeating failure patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := readRecords(args[0])
			if err != nil {
				return err
			}
			if threshold < 1 {
				threshold = cfg.Evolution.StagnationThreshold
			}

			scanner := evolution.NewScanner(threshold)
			res := scanner.DetectStagnation(recs)
			if !res.HasIssue {
				cmd.Printf("no stagnation across %d records (threshold %d)\n", len(recs), threshold)
				return nil
			}
			cmd.Printf("stagnation: %s repeated %v times (%v errors total)\n",
				res.Patterns[0], res.Context["count"], res.Context["total_errors"])
			return nil
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 0, "repeat count that counts as stagnation (0 = config default)")
	return cmd
}

// readRecords parses a JSON-lines file of log records. Blank lines are
// skipped; a malformed line is an error, not a silent drop.
func readRecords(path string) ([]evolution.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var recs []evolution.LogRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		if len(text) == 0 {
			continue
		}
		var rec evolution.LogRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid record: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return recs, nil
}

func printResult(cmd *cobra.Command, idx int, res evolution.LoopResult) {
	switch res.Status {
	case evolution.StatusSuccess:
		cmd.Printf("[%d] success: gene %s (%s)\n", idx, res.Gene.ID, res.Gene.Name)
	case evolution.StatusSkipped:
		cmd.Printf("[%d] skipped: %s\n", idx, res.Error)
	default:
		cmd.Printf("[%d] failed: %s\n", idx, res.Error)
	}
}

// recordOutcome persists a run's gene (when present) and its event row.
func recordOutcome(db *store.Store, res evolution.LoopResult) error {
	if res.Gene != nil {
		if _, err := db.SaveGene(res.Gene); err != nil {
			return err
		}
	}

	payload := map[string]any{
		"status": string(res.Status),
	}
	if res.Gene != nil {
		payload["gene_id"] = res.Gene.ID
	}
	if res.Error != "" {
		payload["error"] = res.Error
	}
	if res.Intent != nil {
		payload["target"] = res.Intent.Target
		payload["action"] = string(res.Intent.Action)
	}
	return db.RecordEvent("evolution_loop", payload, res.Status == evolution.StatusSuccess)
}
