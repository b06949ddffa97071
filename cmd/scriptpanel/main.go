// Package main provides the scripting panel server.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9092
	defaultNodeID   = "python-script"
	defaultSettings = "file://./data"
)

func main() {
	cmd := &cli.Command{
		Name:                  "scriptpanel",
		Usage:                 "Interactive Python scripting panel",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewServeCommand(),
			NewValidateCommand(),
			NewVersionCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
