package command

import (
	"context"

	"clinic-queue/cmd/bootstrap"
	"clinic-queue/config"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Scan runs one absence scan and one reminder scan, for cron-driven deployments
// that do not keep the server's scanners running.
type Scan struct {
	Logger *logrus.Logger
}

func (cmd Scan) Command(cfg *config.Config) *cobra.Command {
	var skipReminders bool

	c := &cobra.Command{
		Use:   "scan",
		Short: "run a single absence scan and reminder scan, then exit",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.run(c.Context(), cfg, skipReminders)
		},
	}
	c.Flags().BoolVar(&skipReminders, "skip-reminders", false, "only run the absence scan")
	return c
}

func (cmd Scan) run(ctx context.Context, cfg *config.Config, skipReminders bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.New(cfg, cmd.Logger)
	if err != nil {
		return errors.Wrap(err, "scan: failed to initialize application")
	}
	defer app.Close()

	report, err := app.AbsenceScanner.RunOnce(ctx)
	if err != nil {
		return errors.Wrap(err, "scan: absence scan failed")
	}
	cmd.Logger.WithFields(logrus.Fields{
		"candidates":    report.Candidates,
		"swapped":       report.Swapped,
		"marked_absent": report.MarkedAbsent,
		"skipped":       report.Skipped,
		"failed":        report.Failed,
	}).Info("Absence scan completed")

	if skipReminders {
		return nil
	}

	sent, err := app.ReminderScanner.RunOnce(ctx)
	if err != nil {
		return errors.Wrap(err, "scan: reminder scan failed")
	}
	cmd.Logger.Infof("Sent %d appointment reminders", sent)
	return nil
}
