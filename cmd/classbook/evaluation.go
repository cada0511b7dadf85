package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pavelanni/classbook/internal/evaluation"
	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
)

func evaluationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluation",
		Aliases: []string{"eval"},
		Short:   "Create evaluations and follow their progress",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an evaluation with one ungraded copy per student",
		Args:  cobra.NoArgs,
		RunE:  runEvaluationCreate,
	}
	f := create.Flags()
	f.String("name", "", "Evaluation name (required)")
	f.String("subject", "", "Subject")
	f.String("group", "", "Student group (required)")
	f.String("rubric", "", "Rubric id (required)")
	f.String("date", "", "Date in YYYY-MM-DD format (default today)")
	f.Float64("coefficient", 1, "Weight in student averages")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("group")
	_ = create.MarkFlagRequired("rubric")

	list := &cobra.Command{
		Use:   "list",
		Short: "List evaluations by grading status",
		Args:  cobra.NoArgs,
		RunE:  runEvaluationList,
	}

	stats := &cobra.Command{
		Use:   "stats ID",
		Short: "Print grade statistics of an evaluation",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluationStats,
	}

	cmd.AddCommand(create, list, stats)
	return cmd
}

func newEvaluationService(e *env) *evaluation.Service {
	return evaluation.NewService(
		evaluation.NewRepository(e.store),
		rubric.NewRepository(e.store),
		roster.New(e.store),
	)
}

func runEvaluationCreate(cmd *cobra.Command, _ []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	ev, err := newEvaluationService(e).Create(ctx, evaluation.NewEvaluation{
		Name:        e.v.GetString("name"),
		Subject:     e.v.GetString("subject"),
		Group:       e.v.GetString("group"),
		Date:        e.v.GetString("date"),
		RubricID:    e.v.GetString("rubric"),
		Coefficient: e.v.GetFloat64("coefficient"),
	})
	if err != nil {
		return err
	}
	fmt.Println(appI18n.Td(ctx, "EvaluationCreated", map[string]any{
		"Name": ev.Name, "ID": ev.ID, "Copies": len(ev.Copies), "Max": ev.MaxPoints,
	}))
	return nil
}

func runEvaluationList(cmd *cobra.Command, _ []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	evs, err := evaluation.NewRepository(e.store).List(ctx)
	if err != nil {
		return err
	}
	c := evaluation.Classify(evs)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, bucket := range []struct {
		label string
		evs   []model.Evaluation
	}{
		{appI18n.T(ctx, "Pending"), c.Pending},
		{appI18n.T(ctx, "InProgress"), c.InProgress},
		{appI18n.T(ctx, "Completed"), c.Completed},
	} {
		if len(bucket.evs) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", bucket.label)
		for _, ev := range bucket.evs {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%.0f%%\n", ev.ID, ev.Date, ev.Group, ev.Name, evaluation.Progress(ev))
		}
	}
	return w.Flush()
}

func runEvaluationStats(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	ev, err := evaluation.NewRepository(e.store).Get(ctx, args[0])
	if err != nil {
		return err
	}
	st := evaluation.Compute(ev)

	fmt.Printf("%s (%s)\n", ev.Name, appI18n.Tp(ctx, "CopiesGraded", st.Graded))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  %s\t%.2f/%g\n", appI18n.T(ctx, "Average"), st.Average, ev.MaxPoints)
	fmt.Fprintf(w, "  %s\t%.2f\n", appI18n.T(ctx, "Median"), st.Median)
	fmt.Fprintf(w, "  %s\t%.2f\n", appI18n.T(ctx, "Minimum"), st.Min)
	fmt.Fprintf(w, "  %s\t%.2f\n", appI18n.T(ctx, "Maximum"), st.Max)
	fmt.Fprintf(w, "  %s\t%.0f%%\n", appI18n.T(ctx, "Completion"), st.CompletionRate)
	return w.Flush()
}
