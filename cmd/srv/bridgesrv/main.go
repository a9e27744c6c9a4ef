package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/apiserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/config"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/history"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

type flagOptions struct {
	Config string `long:"config" description:"path to the bridge config file"`
	Port   int    `long:"port" description:"override the API port from the config"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.Port != 0 {
		cfg.API.Port = opts.Port
	}

	logger, err := logging.NewZapLogger("bridgesrv: ", cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warnf("History store unavailable, snapshots will not be recorded: %v", err)
		store = nil
	}
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	detectOptions := cfg.Detection.DetectOptions()
	server := apiserver.NewServer(
		apiserver.Options{
			Port:          cfg.API.Port,
			DetectOptions: detectOptions,
		},
		apiserver.NewLiveBridge(detectOptions, logger),
		recorderOrNil(store),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting, version: %s, port: %d", apiserver.Version, cfg.API.Port)
	if err := server.Run(ctx); err != nil {
		logger.Errorf("API server failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Shutdown complete")
}

// recorderOrNil avoids handing the server a typed-nil interface value.
func recorderOrNil(store *history.Store) apiserver.SnapshotRecorder {
	if store == nil {
		return nil
	}
	return store
}
