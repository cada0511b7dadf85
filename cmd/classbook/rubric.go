package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
)

func rubricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Validate, import and inspect rubrics",
	}

	validate := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a rubric file and print its totals",
		Args:  cobra.ExactArgs(1),
		RunE:  runRubricValidate,
	}

	importCmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import rubrics from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRubricImport,
	}
	importCmd.Flags().Bool("force", false, "Import files even when unchanged")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a rubric's criteria",
		Args:  cobra.ExactArgs(1),
		RunE:  runRubricShow,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rubrics",
		Args:  cobra.NoArgs,
		RunE:  runRubricList,
	}

	cmd.AddCommand(validate, importCmd, show, list)
	return cmd
}

// decodeList accepts either a JSON array of T or a single T.
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		err := json.Unmarshal(data, &items)
		return items, err
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

func runRubricValidate(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLanguage(cmd.Context(), lang)

	var rb model.Rubric
	if err := readJSON(args[0], &rb); err != nil {
		return err
	}
	err := rubric.Validate(rb)
	var verr *rubric.ValidationError
	if errors.As(err, &verr) {
		fmt.Println(appI18n.Tp(ctx, "RubricProblems", len(verr.Fields)))
		for _, f := range verr.Fields {
			fmt.Printf("  %s: %s\n", f.Path, f.Message)
		}
		return err
	}
	if err != nil {
		return err
	}

	rubric.Recompute(&rb)
	if rb.PassingThreshold <= 0 {
		rb.PassingThreshold = rb.TotalPoints / 2
	}
	fmt.Println(appI18n.Td(ctx, "RubricValid", map[string]any{
		"Name": rb.Name, "Total": rb.TotalPoints, "Passing": rb.PassingThreshold,
	}))
	return nil
}

func runRubricImport(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	repo := rubric.NewRepository(e.store)
	return importFiles(ctx, e.store, args, e.v.GetBool("force"), func(data []byte) (int, error) {
		rubrics, err := decodeList[model.Rubric](data)
		if err != nil {
			return 0, err
		}
		for _, rb := range rubrics {
			saved, err := repo.Save(ctx, rb)
			if err != nil {
				return 0, err
			}
			fmt.Println(appI18n.Td(ctx, "RubricSaved", map[string]any{"Name": saved.Name, "ID": saved.ID}))
		}
		return len(rubrics), nil
	})
}

func runRubricShow(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	rb, err := rubric.NewRepository(e.store).Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", rb.Name, rb.ID)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, l := range rubric.Leaves(rb) {
		fmt.Fprintf(w, "  %s\t%g\n", l.Label, l.Cap)
	}
	fmt.Fprintf(w, "  =\t%g\n", rb.TotalPoints)
	return w.Flush()
}

func runRubricList(cmd *cobra.Command, _ []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	rubrics, err := rubric.NewRepository(e.store).List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, rb := range rubrics {
		fmt.Fprintf(w, "%s\t%s\t%g\n", rb.ID, rb.Name, rb.TotalPoints)
	}
	return w.Flush()
}

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Import and list student groups",
	}

	importCmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import groups from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRosterImport,
	}
	importCmd.Flags().Bool("force", false, "Import files even when unchanged")

	list := &cobra.Command{
		Use:   "list [GROUP]",
		Short: "List groups, or the students of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRosterList,
	}

	cmd.AddCommand(importCmd, list)
	return cmd
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	r := roster.New(e.store)
	return importFiles(ctx, e.store, args, e.v.GetBool("force"), func(data []byte) (int, error) {
		groups, err := decodeList[model.Group](data)
		if err != nil {
			return 0, err
		}
		for _, g := range groups {
			if err := r.SaveGroup(ctx, g); err != nil {
				return 0, err
			}
		}
		return len(groups), nil
	})
}

func runRosterList(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	r := roster.New(e.store)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if len(args) == 1 {
		students, err := r.Students(ctx, args[0])
		if err != nil {
			return err
		}
		for i, st := range students {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, st.ID, roster.FullName(st))
		}
		return w.Flush()
	}
	groups, err := r.Groups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\n", g.Name, len(g.Students))
	}
	return w.Flush()
}
