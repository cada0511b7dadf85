package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/xp"
)

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show level and XP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()

			p, err := xp.NewLedger(e.store).Profile(ctx)
			if err != nil {
				return err
			}
			fmt.Println(appI18n.Td(ctx, "ProfileLine", map[string]any{
				"Level": p.Level, "XP": p.XP, "Next": p.NextLevelXP,
			}))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export EVALUATION_ID",
		Short: "Export the detailed grade grid of an evaluation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()

			grid, err := newEvaluationService(e).Export(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(e.v.GetString("output"), grid)
		},
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func dumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write every collection and setting as one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()

			doc, err := e.store.Dump(ctx)
			if err != nil {
				return err
			}
			return writeJSON(e.v.GetString("output"), doc)
		},
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Load a document written by dump, replacing what it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()

			var doc model.Document
			if err := readJSON(args[0], &doc); err != nil {
				return err
			}
			return e.store.Restore(ctx, doc)
		},
	}
}
