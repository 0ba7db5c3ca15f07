package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/planner"
	"ai-advisor/backend/pkg/jwt"
)

// ── show / grid ──

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences and blocked periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			out := cmd.OutOrStdout()
			printUser(out, a)
			printPreference(out, a.session.Preference())
			fmt.Fprintln(out)
			fmt.Fprint(out, a.session.Grid().Render())
			return nil
		},
	}
}

func newGridCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "Print the blocked-period grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			fmt.Fprint(cmd.OutOrStdout(), a.session.Grid().Render())
			return nil
		},
	}
}

// ── set / toggle ──

func newSetCommand(a *app) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "set FIELD VALUE [FIELD VALUE...]",
		Short: "Set numeric preference fields and save",
		Long: `Set one or more numeric fields: major_count (x), minor_count (y),
elective_count (z), min_credits, max_credits. Values that are not integers
are stored as 0.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expects FIELD VALUE pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			for i := 0; i < len(args); i += 2 {
				if err := a.session.SetField(args[i], args[i+1]); err != nil {
					return err
				}
			}

			printPreference(cmd.OutOrStdout(), a.session.Preference())
			if noSave {
				return nil
			}
			return a.session.Save(ctx)
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Only print the edited draft")
	return cmd
}

func newToggleCommand(a *app) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "toggle DAY PERIOD [DAY PERIOD...]",
		Short: "Toggle blocked weekday periods and save",
		Long:  `Toggle one or more cells of the grid. DAY is one of M T W R F, PERIOD starts at 1.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expects DAY PERIOD pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			for i := 0; i < len(args); i += 2 {
				day := strings.ToUpper(args[i])
				if !planner.IsWeekday(day) {
					return fmt.Errorf("invalid day %q", args[i])
				}
				period, err := strconv.Atoi(args[i+1])
				if err != nil || period < 1 || period > a.cfg.Planner.PeriodCount {
					return fmt.Errorf("invalid period %q", args[i+1])
				}
				a.session.TogglePeriod(day, period)
			}

			fmt.Fprint(cmd.OutOrStdout(), a.session.Grid().Render())
			if noSave {
				return nil
			}
			return a.session.Save(ctx)
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Only print the edited grid")
	return cmd
}

// ── generate ──

func newGenerateCommand(a *app) *cobra.Command {
	var (
		saveAs   string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Save preferences and request a schedule from the solver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			if err := a.session.Generate(ctx); err != nil {
				return err
			}

			courses := a.session.Schedule()
			out := cmd.OutOrStdout()
			printSchedule(out, courses, a.session.TotalCredits())

			if saveAs == "" || len(courses) == 0 {
				return nil
			}
			total := a.session.TotalCredits()
			plan, err := a.gateway.CreatePlan(ctx, &dto.CreatePlanRequest{
				Name:         saveAs,
				Courses:      courses,
				TotalCredits: &total,
				Activate:     activate,
			})
			if err != nil {
				return fmt.Errorf("保存方案失败: %w", err)
			}
			fmt.Fprintf(out, "\nSaved plan %q (%s)\n", plan.Name, plan.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&saveAs, "save-as", "", "Save the generated schedule as a named plan")
	cmd.Flags().BoolVar(&activate, "activate", false, "Mark the saved plan as active")
	return cmd
}

// ── import-ics ──

func newImportCommand(a *app) *cobra.Command {
	var (
		replace bool
		noSave  bool
	)
	cmd := &cobra.Command{
		Use:   "import-ics FILE",
		Short: "Block the weekday periods occupied by events in an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			a.start(ctx)

			res, err := a.gateway.ImportBlacklist(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			slots := res.Slots
			if !replace {
				slots = append(planner.ToSlots(a.session.Preference().Blacklist), slots...)
			}
			a.session.SetBlacklist(planner.FromSlots(slots))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d events (%d skipped), %d periods\n", res.Events, res.Skipped, len(res.Slots))
			fmt.Fprint(out, a.session.Grid().Render())
			if noSave {
				return nil
			}
			return a.session.Save(ctx)
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the blacklist instead of merging")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Only print the merged grid")
	return cmd
}

// ── token ──

// newTokenCommand 开发环境下用共享密钥签发访问令牌
func newTokenCommand(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:    "token USER_ID",
		Short:  "Issue a development access token signed with auth.jwt_secret",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Auth.JWTSecret) < 16 {
				return errors.New("auth.jwt_secret must be at least 16 characters")
			}
			tok, err := jwt.NewManager(&a.cfg.Auth).GenerateAccessToken(args[0], email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	return cmd
}

// ── 输出 ──

func printUser(w io.Writer, a *app) {
	if uid, ok := a.auth.CurrentUser(); ok {
		fmt.Fprintf(w, "User: %s\n", uid)
		return
	}
	fmt.Fprintln(w, "User: (anonymous, using defaults)")
}

func printPreference(w io.Writer, p planner.Preference) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "major_count\t%d\n", p.MajorCount)
	fmt.Fprintf(tw, "minor_count\t%d\n", p.MinorCount)
	fmt.Fprintf(tw, "elective_count\t%d\n", p.ElectiveCount)
	fmt.Fprintf(tw, "credits\t%d-%d\n", p.MinCredits, p.MaxCredits)
	fmt.Fprintf(tw, "blocked\t%d periods\n", p.Blacklist.Len())
	tw.Flush()
}

func printSchedule(w io.Writer, courses []planner.ConsolidatedCourse, total float64) {
	if len(courses) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tNAME\tTYPE\tCREDITS\tMEETS")
	for _, c := range courses {
		meets := make([]string, 0, len(c.Slots))
		for _, s := range c.Slots {
			meets = append(meets, fmt.Sprintf("%s%d", s.Day, s.Period))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n", c.CourseID, c.CourseName, c.CourseType, c.Credits, strings.Join(meets, " "))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total credits: %g\n", total)
}
