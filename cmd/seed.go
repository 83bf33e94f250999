package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/psds-microservice/helpdesk-service/internal/application"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo tickets and messages into an empty database",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver == database.DriverMemory {
		return errors.New("seed: memory store is seeded at startup (SEED_DEMO=true)")
	}
	repo, closeRepo, err := application.OpenRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	loaded, err := seed.Load(context.Background(), repo)
	if err != nil {
		return err
	}
	if !loaded {
		log.Println("seed: nothing to do")
	}
	return nil
}
