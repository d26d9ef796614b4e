package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/services/logger"
)

func main() {
	os.Exit(start())
}

func start() int {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	conf, err := core.NewConfig(wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var logger core.Logger = logsvc.NewConsoleLogger(os.Stderr, conf)
	if conf.RollbarToken != "" && !conf.Debug {
		rollbar := logsvc.NewRollbarLogger(logger, conf)
		defer rollbar.Close()
		logger = rollbar
	}

	validate, translator, err := core.NewValidator(conf.Locale)
	if err != nil {
		logger.Error("setting up validator", err)
		return 1
	}

	// start CLI
	cli := commandLine{
		in:            os.Stdin,
		out:           os.Stdout,
		logger:        logger,
		validate:      validate,
		translator:    translator,
		maxAuthorized: conf.MaxAuthorized,
	}
	if err := cli.run(os.Args); err != nil {
		switch errors.Cause(err) {
		case errHelp:
		case errInvalidRUNs, errInvalidFamily:
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		default:
			logger.Error("admin command failed", err)
		}
		return 1
	}
	return 0
}
