package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/scriptpanel/pkg/completion"
	"github.com/dukex/scriptpanel/pkg/initialdata"
	"github.com/dukex/scriptpanel/pkg/log"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/urfave/cli/v3"
)

var ErrMissingInitialDataFile = errors.New("initial data file is required")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate an initial data file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("validate")

			path := command.Args().First()
			if path == "" {
				return ErrMissingInitialDataFile
			}

			data, err := initialdata.LoadFile(path)
			if err != nil {
				logger.ErrorContext(ctx, "Invalid initial data", "path", path, "error", err)

				return err
			}

			candidates := completion.CandidatesFromInitialData(data)
			supported := session.DeriveRunningSupported(data.InputConnectionInfo)

			_, err = fmt.Fprintf(command.Root().Writer,
				"%s is valid: %d input ports, %d executables, %d completion candidates, running supported: %t\n",
				path, len(data.InputObjects), len(data.ExecutableOptionsList), len(candidates), supported,
			)

			return err
		},
	}
}
