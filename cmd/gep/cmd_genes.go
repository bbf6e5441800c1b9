package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gep/internal/store"
)

func openStore() (*store.Store, error) {
	return store.NewStore(filepath.Join(flagWorkspace, cfg.Store.DatabasePath))
}

func newGenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genes",
		Short: "List solidified genes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			genes, err := db.ListGenes()
			if err != nil {
				return err
			}
			if len(genes) == 0 {
				cmd.Println("no genes stored")
				return nil
			}
			for _, g := range genes {
				kind := "code"
				if g.Implementation == "" {
					kind = "prompt"
				}
				cmd.Printf("%s  %-30s  %s  rate=%.2f  tags=%s\n",
					g.ID, g.Name, kind, g.SuccessRate, strings.Join(g.ContextTags, ","))
			}
			return nil
		},
	}
}

func newEventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent evolution events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			events, err := db.ListEvents(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				cmd.Println("no events recorded")
				return nil
			}
			for _, ev := range events {
				status := "ok"
				if !ev.Success {
					status = "failed"
				}
				cmd.Printf("%s  %-16s  %-6s  %s\n",
					ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.EventType, status, ev.Payload)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to list")
	return cmd
}
