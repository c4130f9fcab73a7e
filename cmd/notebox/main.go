package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/notebox/cmd/notebox/secret"
	"github.com/andrebq/notebox/cmd/notebox/serve"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "notebox",
		Usage: "Personal notes, behind a Google login",
		Commands: []*cli.Command{
			serve.Cmd(),
			secret.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
