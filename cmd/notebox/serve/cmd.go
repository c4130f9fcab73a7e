package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/andrebq/notebox/api"
	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/internal/cmdflags"
	"github.com/andrebq/notebox/internal/config"
	"github.com/andrebq/notebox/internal/httpserver"
	"github.com/andrebq/notebox/internal/logutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
	"github.com/andrebq/notebox/web"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var bind, store, logFormat string
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the notes api and the browser client",
		Flags: []cli.Flag{
			cmdflags.Bind(&bind),
			cmdflags.Store(&store),
			cmdflags.LogFormat(&logFormat),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			err = cmdflags.Apply(cfg, bind, store, logFormat)
			if err != nil {
				return err
			}
			logger, err := logutil.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			return run(logutil.WithLogger(ctx.Context, logger), cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logutil.GetOrDefault(ctx)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := session.DeriveKey(cfg.JWTSecret)
	if err != nil {
		return err
	}
	cfg.JWTSecret = ""
	opts := []session.Option{session.WithTTL(cfg.Session.TTL)}
	if cfg.Session.RevokeOnLogout {
		registry, err := session.InMemoryRevocations(cfg.Session.TTL)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithRevocations(registry))
	}
	issuer := session.NewIssuer(key, opts...)

	verifier, err := identity.NewGoogle(ctx, cfg.Google.ClientID)
	if err != nil {
		return err
	}
	client, err := clientHandler(cfg)
	if err != nil {
		return err
	}
	handler, err := api.AsHandler(ctx, api.Config{
		Store:    store,
		Verifier: verifier,
		Issuer:   issuer,
		Cookies: session.Transport{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Production(),
		},
		VerifyTimeout: cfg.Google.VerifyTimeout,
		AllowedOrigin: cfg.CORS.Origin,
		Client:        client,
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("store", cfg.Store).
		Str("env", cfg.Env).
		Bool("secureCookies", cfg.Production()).
		Bool("revokeOnLogout", cfg.Session.RevokeOnLogout).
		Str("corsOrigin", cfg.CORS.Origin).
		Str("clientDevURL", cfg.Client.DevURL).
		Msg("Notebox configured")
	return httpserver.Serve(ctx, cfg.Bind, handler)
}

func openStore(ctx context.Context, kind string) (notebook.Store, error) {
	switch kind {
	case config.StoreMemory:
		return notebook.InMemory(), nil
	case config.StoreSQLite:
		return notebook.InSQLite(ctx)
	default:
		return nil, fmt.Errorf("serve: unknown store %q", kind)
	}
}

func clientHandler(cfg *config.Config) (http.Handler, error) {
	if cfg.Client.DevURL != "" {
		return web.Proxy(cfg.Client.DevURL)
	}
	return web.Handler(cfg.Google.ClientID)
}
