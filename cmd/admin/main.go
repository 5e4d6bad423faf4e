package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/semka95/natours/backend/cmd"
	"github.com/semka95/natours/backend/store"
)

const usage = "usage: admin migrate|import|delete"

func main() {
	// Logging
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Println("can't create logger: ", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("shutting down, error: ", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := cmd.AppConfig(os.Getenv(cmd.ConfigEnv), logger)
	if err != nil {
		return err
	}

	timeoutContext := time.Duration(cfg.Server.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeoutContext)
	defer cancel()

	client, err := store.Open(ctx, cfg.MongoConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err = client.Disconnect(ctx); err != nil {
			logger.Error("mongodb client disconnect error: ", zap.Error(err))
		}
	}()

	db := client.Database(cfg.MongoConfig.Name)

	switch args[0] {
	case "migrate":
		err = store.Migrate(client, cfg.MongoConfig.Name, logger)
	case "import":
		err = store.Seed(ctx, db)
	case "delete":
		err = store.DeleteAll(ctx, db)
	default:
		err = fmt.Errorf("unknown command %q, %s", args[0], usage)
	}
	if err != nil {
		return err
	}

	logger.Info("done", zap.String("command", args[0]))
	return nil
}
