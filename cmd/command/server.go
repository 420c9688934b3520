package command

import (
	"clinic-queue/cmd/bootstrap"
	"clinic-queue/config"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Server struct {
	Logger *logrus.Logger
}

func (cmd Server) Command(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "run the queue HTTP server with the absence and reminder scanners",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := bootstrap.New(cfg, cmd.Logger)
			if err != nil {
				return errors.Wrap(err, "server: failed to initialize application")
			}

			app.Run()
			return nil
		},
	}
}
