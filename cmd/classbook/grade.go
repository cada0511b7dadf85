package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/classbook/internal/evaluation"
	"github.com/pavelanni/classbook/internal/grading"
	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/llm"
	"github.com/pavelanni/classbook/internal/llm/prompts"
	"github.com/pavelanni/classbook/internal/roster"
	"github.com/pavelanni/classbook/internal/rubric"
	"github.com/pavelanni/classbook/internal/xp"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade EVALUATION_ID",
		Short: "Grade one student's copy",
		Long: `Grade one student's copy. --points lists the points of every rubric
leaf in order (see "rubric show"). Sub-criteria add up to their criterion.`,
		Args: cobra.ExactArgs(1),
		RunE: runGrade,
	}
	f := cmd.Flags()
	f.IntP("student", "s", 0, "Student index in the group (see \"roster list GROUP\")")
	f.Float64SliceP("points", "p", nil, "Points per rubric leaf, comma separated")
	f.StringP("comments", "c", "", "Feedback for the student")
	f.Bool("next", false, "Open the next student after saving")
	f.String("correction-category", xp.CorrectionCategory, "Task category whose base XP rewards grading")
	f.Bool("draft-comment", false, "Draft the comment with the LLM")
	f.String("tone", string(prompts.ToneNeutral), "Drafted comment tone (strict, neutral, encouraging)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	return cmd
}

func runGrade(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	svc := grading.NewService(e.store, grading.Options{
		CorrectionCategory: e.v.GetString("correction-category"),
	})
	sess, err := svc.Start(ctx, args[0], e.v.GetInt("student"))
	if err != nil {
		return err
	}
	if n := len(sess.Orphans); n > 0 {
		fmt.Println(appI18n.Tp(ctx, "OrphanedDetails", n))
	}

	leaves := rubric.Leaves(sess.Rubric())
	points := e.v.GetFloat64Slice("points")
	if len(points) > 0 && len(points) != len(leaves) {
		return fmt.Errorf("got %d points, rubric has %d leaves", len(points), len(leaves))
	}
	for i, p := range points {
		l := leaves[i]
		if l.SubCriterionID == "" {
			err = sess.SetCriterionPoints(l.CriterionID, p)
		} else {
			err = sess.SetSubCriterionPoints(l.CriterionID, l.SubCriterionID, p)
		}
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("comments") {
		if err := sess.SetComments(e.v.GetString("comments")); err != nil {
			return err
		}
	}

	if e.v.GetBool("draft-comment") {
		if err := draftComment(ctx, e, sess); err != nil {
			// Grading works without a drafted comment.
			slog.Error("failed to draft comment", "error", err)
		}
	}

	var (
		res  grading.SaveResult
		next *grading.Session
	)
	if e.v.GetBool("next") {
		res, next, err = svc.SaveAndNext(ctx, sess)
	} else {
		res, err = svc.Save(ctx, sess)
	}
	if err != nil {
		return err
	}

	fmt.Println(appI18n.Td(ctx, "GradeSaved", map[string]any{
		"Grade": sess.TotalPoints(), "Max": sess.MaxPoints, "Student": roster.FullName(sess.Student),
	}))
	if res.FirstGrading {
		fmt.Println(appI18n.Td(ctx, "XPAwarded", map[string]any{
			"XP":       res.Award.Total,
			"Base":     res.Award.Base,
			"Time":     fmt.Sprintf("%.1f", res.Award.TimeBonus),
			"Accuracy": fmt.Sprintf("%.1f", res.Award.AccuracyBonus),
		}))
	}
	if res.LeveledUp {
		fmt.Println(appI18n.Td(ctx, "LevelUp", map[string]any{"Level": res.Profile.Level}))
	}
	if next != nil {
		fmt.Printf("-> %d %s\n", next.StudentIndex, roster.FullName(next.Student))
	}
	return nil
}

func draftComment(ctx context.Context, e *env, sess *grading.Session) error {
	tone := strings.ToLower(strings.TrimSpace(e.v.GetString("tone")))
	if !prompts.IsValidTone(tone) {
		slog.Warn("invalid tone, using neutral", "tone", tone)
		tone = string(prompts.ToneNeutral)
	}
	ev, err := evaluation.NewRepository(e.store).Get(ctx, sess.EvaluationID)
	if err != nil {
		return err
	}
	client := llm.New(e.v.GetString("llm-url"), e.v.GetString("llm-key"), e.v.GetString("llm-model"))
	comment, err := client.DraftComment(ctx, llm.DraftRequest{
		Evaluation: ev,
		Rubric:     sess.Rubric(),
		Details:    sess.Details(),
		Comments:   sess.Comments,
		Tone:       prompts.Tone(tone),
	})
	if err != nil {
		return err
	}
	fmt.Println(comment)
	return sess.SetComments(comment)
}
