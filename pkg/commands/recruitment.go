package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/schema"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/migrations"
)

// Connector opens the pool used by a command. Tests swap it out.
type Connector func(ctx context.Context) (*pgxpool.Pool, error)

type rootOptions struct {
	dsn     string
	connect Connector
	logger  logrus.FieldLogger
}

func (o *rootOptions) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if o.connect != nil {
		return o.connect(ctx)
	}
	return GetDatabasePool(ctx, o.dsn)
}

// NewRecruitmentCommand returns the operator CLI root with the migrate,
// blacklist, badges and ranks commands.
func NewRecruitmentCommand(logger logrus.FieldLogger) *cobra.Command {
	return newRecruitmentCommand(&rootOptions{logger: logger})
}

func newRecruitmentCommand(opts *rootOptions) *cobra.Command {
	if opts.logger == nil {
		opts.logger = logrus.StandardLogger()
	}
	root := &cobra.Command{
		Use:           "recruitment",
		Short:         "Recruitment pipeline operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "postgres connection string (defaults to DB_* settings)")
	root.AddCommand(
		newMigrateCmd(opts),
		newBlacklistCmd(opts),
		newBadgesCmd(opts),
		newRanksCmd(),
	)
	return root
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the recruitment schema migrations",
	}

	withRunner := func(cmd *cobra.Command, fn func(ctx context.Context, r *migrations.Runner) error) error {
		ctx := cmd.Context()
		pool, err := opts.pool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		runner, err := migrations.NewRunner(pool, schema.Migrations, opts.logger)
		if err != nil {
			return err
		}
		defer runner.Close()
		return fn(ctx, runner)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *migrations.Runner) error {
				applied, err := r.Up(ctx)
				for _, a := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d %s\n", a.Version, a.Source)
				}
				if err == nil && len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				}
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *migrations.Runner) error {
				rolled, err := r.Down(ctx)
				for _, a := range rolled {
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d %s\n", a.Version, a.Source)
				}
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, r *migrations.Runner) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				return writeStatuses(cmd.OutOrStdout(), statuses)
			})
		},
	})
	return cmd
}

func writeStatuses(w io.Writer, statuses []migrations.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tSOURCE")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Source)
	}
	return tw.Flush()
}

func newBlacklistCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Inspect the hiring blacklist",
	}

	var externalID, handle string
	check := &cobra.Command{
		Use:   "check",
		Short: "Report whether an identity is barred from hiring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if externalID == "" && handle == "" {
				return errors.New("--external-id or --handle is required")
			}
			ctx := cmd.Context()
			pool, err := opts.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx = composables.WithPool(ctx, pool)
			res, err := services.NewBlacklistGate(persistence.NewBlacklistRepository()).Check(ctx, externalID, handle)
			if err != nil {
				return err
			}
			writeCheck(cmd.OutOrStdout(), res)
			return nil
		},
	}
	check.Flags().StringVar(&externalID, "external-id", "", "external account id")
	check.Flags().StringVar(&handle, "handle", "", "external handle, matched case-insensitively")
	cmd.AddCommand(check)
	return cmd
}

func writeCheck(w io.Writer, res services.BlacklistCheck) {
	switch {
	case res.Blocked && res.ExpiresAt != nil:
		fmt.Fprintf(w, "blocked until %s: %s\n", res.ExpiresAt.Format("2006-01-02 15:04 MST"), res.Reason)
	case res.Blocked:
		fmt.Fprintf(w, "blocked permanently: %s\n", res.Reason)
	case res.Expired:
		fmt.Fprintf(w, "clear (expired entry: %s)\n", res.Reason)
	default:
		fmt.Fprintln(w, "clear")
	}
}

func newBadgesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Inspect and assign badge numbers",
	}

	var rankLevel int
	next := &cobra.Command{
		Use:   "next",
		Short: "Print the badge the next hire at a rank would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := ranks.Lookup(rankLevel)
			if !ok {
				return fmt.Errorf("unknown rank level %d", rankLevel)
			}
			ctx := cmd.Context()
			pool, err := opts.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx = composables.WithPool(ctx, pool)
			alloc := services.NewBadgeAllocator(persistence.NewEmployeeRepository(), services.DefaultBadgeClaimAttempts)
			badge, free, err := alloc.Peek(ctx, tier.Badge)
			if err != nil {
				return err
			}
			if !free {
				fmt.Fprintf(cmd.OutOrStdout(), "range %s is exhausted\n", tier.Badge)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), badge)
			return nil
		},
	}
	next.Flags().IntVar(&rankLevel, "rank-level", 1, "rank level on the ladder")

	var employeeID uint
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Give an active employee without a badge the lowest free number of their rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			if employeeID == 0 {
				return errors.New("--employee-id is required")
			}
			ctx := cmd.Context()
			pool, err := opts.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx = composables.WithPool(ctx, pool)
			repo := persistence.NewEmployeeRepository()
			emp, err := repo.GetByID(ctx, employeeID)
			if err != nil {
				return err
			}
			if !emp.IsActive() {
				return fmt.Errorf("employee %d is not active", employeeID)
			}
			if emp.Badge() != "" {
				return fmt.Errorf("employee %d already holds %s", employeeID, emp.Badge())
			}
			tier, ok := ranks.Lookup(emp.RankLevel())
			if !ok {
				return fmt.Errorf("employee %d has unknown rank level %d", employeeID, emp.RankLevel())
			}
			alloc := services.NewBadgeAllocator(repo, services.DefaultBadgeClaimAttempts)
			badge, err := composables.InTxResult(ctx, func(txCtx context.Context) (string, error) {
				return alloc.Allocate(txCtx, employeeID, tier.Badge)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "employee %d now holds %s\n", employeeID, badge)
			return nil
		},
	}
	assign.Flags().UintVar(&employeeID, "employee-id", 0, "employee to receive a badge")

	cmd.AddCommand(next, assign)
	return cmd
}

func newRanksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranks",
		Short: "Print the rank ladder and badge ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tNAME\tTEAM\tBADGES")
			for _, t := range ranks.All() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.Level, t.Name, t.Team, t.Badge)
			}
			return tw.Flush()
		},
	}
}
