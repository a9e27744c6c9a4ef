package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/config"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/history"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/quota"
)

type flagOptions struct {
	Config  string `long:"config" description:"path to the bridge config file"`
	Detect  bool   `long:"detect" description:"detect the language server and print the endpoint"`
	Quota   bool   `long:"quota" description:"detect the language server and print the current quota"`
	History int    `long:"history" description:"print the most recent N recorded snapshots" default:"0"`
	JSON    bool   `long:"json" description:"emit raw JSON instead of formatted output"`
	Verbose bool   `short:"v" long:"verbose" description:"verbose detection logging"`
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

	logLevel := cfg.LogLevel
	if opts.Verbose {
		logLevel = "debug"
	}
	logger, err := logging.NewZapLogger("bridgecli: ", logLevel)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	detectOptions := cfg.Detection.DetectOptions()
	detectOptions.Verbose = detectOptions.Verbose || opts.Verbose

	ctx := context.Background()

	switch {
	case opts.History > 0:
		err = runHistory(cfg, opts.History, opts.JSON)
	case opts.Quota:
		err = runQuota(ctx, cfg, detectOptions, logger, opts.JSON)
	case opts.Detect:
		err = runDetect(ctx, detectOptions, logger, opts.JSON)
	default:
		parser.WriteHelp(os.Stdout)
		return
	}
	if err != nil {
		fmt.Println(renderError(err.Error()))
		os.Exit(1)
	}
}

func runDetect(ctx context.Context, options languageserver.DetectOptions, logger logging.Logger, asJSON bool) error {
	detector, err := languageserver.NewDetector(logger)
	if err != nil {
		return err
	}

	endpoint, err := detector.Detect(ctx, options)
	if err != nil {
		if message := detector.FailureMessage(); message != "" {
			return fmt.Errorf("%s (%v)", message, err)
		}
		return err
	}

	if asJSON {
		return printJSON(endpoint)
	}
	fmt.Println(renderEndpoint(endpoint, &detector.Diagnostics))
	return nil
}

func runQuota(ctx context.Context, cfg config.Config, options languageserver.DetectOptions, logger logging.Logger, asJSON bool) error {
	detector, err := languageserver.NewDetector(logger)
	if err != nil {
		return err
	}
	endpoint, err := detector.Detect(ctx, options)
	if err != nil {
		if message := detector.FailureMessage(); message != "" {
			return fmt.Errorf("%s (%v)", message, err)
		}
		return err
	}

	snapshot, err := quota.NewFetcher(logger).Fetch(ctx, endpoint)
	if err != nil {
		return err
	}

	if store, storeErr := history.Open(cfg.History.Path); storeErr == nil {
		if recordErr := store.Record(snapshot); recordErr != nil {
			logger.Warnf("Failed to record snapshot in history: %v", recordErr)
		}
		store.Close()
	} else {
		logger.Warnf("History store unavailable: %v", storeErr)
	}

	if asJSON {
		return printJSON(snapshot)
	}
	fmt.Println(renderSnapshot(snapshot))
	return nil
}

func runHistory(cfg config.Config, limit int, asJSON bool) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(limit)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(entries)
	}
	fmt.Println(renderHistory(entries))
	return nil
}

func printJSON(payload interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
