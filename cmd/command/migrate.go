package command

import (
	"fmt"

	"clinic-queue/config"
	"clinic-queue/internal/infrastructure/database"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Migrate struct {
	Logger *logrus.Logger
}

func (cmd Migrate) Command(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.run(cfg, args[0])
		},
	}
}

func (cmd Migrate) run(cfg *config.Config, direction string) error {
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return errors.Wrap(err, "migrate: failed to connect to postgresql")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	switch direction {
	case "up":
		err = database.MigrateUp(db, cfg.DB)
	case "down":
		err = database.MigrateDown(db, cfg.DB)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return errors.Wrapf(err, "migrate: %s failed", direction)
	}

	cmd.Logger.Infof("Migration %s completed", direction)
	return nil
}
