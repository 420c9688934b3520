package main

import (
	"clinic-queue/cmd/bootstrap"
	"clinic-queue/cmd/command"
	"clinic-queue/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	const description = "Walk-in clinic queue service"
	root := &cobra.Command{Use: "clinic-queue", Short: description}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := bootstrap.SetupLogger(cfg.App.Env)

	root.AddCommand(
		command.Server{Logger: logger}.Command(cfg),
		command.Migrate{Logger: logger}.Command(cfg),
		command.Scan{Logger: logger}.Command(cfg),
		command.Token{Logger: logger}.Command(cfg),
	)

	if err := root.Execute(); err != nil {
		logger.Fatalf("Failed to execute command: %v", err)
	}
}
