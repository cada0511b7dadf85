package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/schedule"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show classes for a day or a week",
	}
	cmd.PersistentFlags().Duration("retry-delay", schedule.DefaultRetryDelay, "Pause before reloading unreadable schedule data")

	day := &cobra.Command{
		Use:   "day [DATE]",
		Short: "Show the classes of a date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScheduleDay,
	}
	week := &cobra.Command{
		Use:   "week [DATE]",
		Short: "Show Monday to Friday of the week containing DATE (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScheduleWeek,
	}
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the schedule, holidays, internships and week reference from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleImport,
	}
	importCmd.Flags().Bool("force", false, "Import the file even when unchanged")

	cmd.AddCommand(day, week, importCmd)
	return cmd
}

func dateArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return time.Now().Format(time.DateOnly)
}

func loadCalendar(ctx context.Context, e *env) (schedule.Calendar, error) {
	return schedule.Load(ctx, e.store, schedule.LoadOptions{RetryDelay: e.v.GetDuration("retry-delay")})
}

func runScheduleDay(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	cal, err := loadCalendar(ctx, e)
	if err != nil {
		return err
	}
	date := dateArg(args)
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printDay(ctx, w, cal, date)
	return w.Flush()
}

func runScheduleWeek(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	cal, err := loadCalendar(ctx, e)
	if err != nil {
		return err
	}
	start, ok := schedule.WeekStart(dateArg(args))
	if !ok {
		return fmt.Errorf("invalid date %q", dateArg(args))
	}
	week := cal.ScheduleForWeek(start)
	dates := make([]string, 0, len(week))
	for d := range week {
		dates = append(dates, d)
	}
	slices.Sort(dates)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, d := range dates {
		printClasses(ctx, w, cal, d, week[d])
	}
	return w.Flush()
}

func printDay(ctx context.Context, w *tabwriter.Writer, cal schedule.Calendar, date string) {
	printClasses(ctx, w, cal, date, cal.ClassesForDate(date))
}

func printClasses(ctx context.Context, w *tabwriter.Writer, cal schedule.Calendar, date string, classes []model.ScheduleClass) {
	d, _ := time.Parse(time.DateOnly, date)
	fmt.Fprintf(w, "%s %s\n", appI18n.Weekday(ctx, d.Weekday()), date)
	if len(classes) == 0 {
		fmt.Fprintf(w, "  %s\n", dayOffLabel(ctx, cal, date))
		return
	}
	for _, c := range classes {
		label := c.Subject
		if c.Event {
			label += " (" + appI18n.T(ctx, "Event") + ")"
		}
		fmt.Fprintf(w, "  %s-%s\t%s\t%s\t%s\n", c.StartTime, c.EndTime, label, c.Group, c.Room)
	}
}

func dayOffLabel(ctx context.Context, cal schedule.Calendar, date string) string {
	off, ok := cal.HolidayInfoForDate(date)
	if !ok {
		return appI18n.T(ctx, "NoClasses")
	}
	switch off.Kind {
	case schedule.DayOffInternship:
		return appI18n.Td(ctx, "DayOffInternship", map[string]any{"Groups": strings.Join(off.Groups, ", ")})
	default:
		return appI18n.Td(ctx, "DayOffHoliday", map[string]any{"Name": off.Name})
	}
}

func runScheduleImport(cmd *cobra.Command, args []string) error {
	ctx, e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.store.Close()

	return importFiles(ctx, e.store, args, e.v.GetBool("force"), func(data []byte) (int, error) {
		cals, err := decodeList[schedule.Calendar](data)
		if err != nil {
			return 0, err
		}
		if len(cals) != 1 {
			return 0, fmt.Errorf("expected one calendar, got %d", len(cals))
		}
		cal := cals[0]
		if err := schedule.Save(ctx, e.store, cal); err != nil {
			return 0, err
		}
		return len(cal.Regular.Days), nil
	})
}
