package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"
	"github.com/urfave/cli/v2"

	"placefinder/src/common"
	"placefinder/src/db"
	"placefinder/src/handlers"
	"placefinder/src/imageurl"
	"placefinder/src/listing"
	"placefinder/src/metrics"
	"placefinder/src/searchcache"
	"placefinder/src/server"
	"placefinder/src/staticmap"
	"placefinder/src/token"
	"placefinder/src/uploads"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "placefinder",
		Usage: "Place search, listing, and review API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"PLACES_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveAction,
			},
			{
				Name:  "seed",
				Usage: "Load places from a tab-separated file into the store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Seed file: id, name, address, phone, lon, lat[, category, image_url]",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "User id that owns the seeded places",
						Required: true,
					},
				},
				Action: seedAction,
			},
			{
				Name:      "hash-password",
				Usage:     "Print a bcrypt hash for the auth.users table",
				ArgsUsage: "<password>",
				Action:    hashPasswordAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "placefinder: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*common.Config, arbor.ILogger, error) {
	config, err := common.LoadFromFile(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	common.ApplyFlagOverrides(config, c.Int("port"))
	return config, common.SetupLogger(config), nil
}

func serveAction(c *cli.Context) error {
	config, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(ctx, config.Storage, logger)
	if err != nil {
		return errors.Wrap(err, "failed to open store")
	}
	defer store.Close()

	m := metrics.New()

	provider := searchcache.NewGraphQLClient(searchcache.ClientConfig{
		Endpoint:      config.Search.Endpoint,
		OperationName: config.Search.OperationName,
		UserAgent:     config.Search.UserAgent,
		Referer:       config.Search.Referer,
		Origin:        config.Search.Origin,
		Timeout:       common.ParseDuration(config.Search.Timeout, 5*time.Second),
		RateLimit:     config.Search.RateLimit,
		Burst:         config.Search.Burst,
	}, nil, logger)

	cache := searchcache.New(provider, logger,
		searchcache.WithTTL(common.ParseDuration(config.Search.CacheTTL, searchcache.DefaultTTL)),
		searchcache.WithOperation(config.Search.OperationName),
		searchcache.WithMetrics(m),
	)

	issuer := token.NewIssuer(config.Auth, logger)
	if config.Auth.SigningKey == "" {
		logger.Warn().Msg("MY_SIGNING_KEY is not set; every caller is anonymous")
	}

	api := &handlers.API{
		Listing:   listing.NewService(store, cache, provider, config.Images.ReviewWidth, logger),
		Identity:  issuer,
		Tokens:    issuer,
		StaticMap: staticmap.NewClient(config.StaticMap, nil, logger),
		Logger:    logger,
	}

	objects, err := uploads.NewMinioStore(config.Uploads)
	if err != nil {
		return err
	}
	compressor := imageurl.NewJPEGCompressor(config.Uploads.MaxDimension, config.Uploads.Quality, config.Uploads.MaxBytes)
	if objects != nil {
		api.Uploads = uploads.NewService(config.Uploads, config.Images.ReviewWidth, objects, compressor, logger)
	} else {
		logger.Info().Msg("uploads.endpoint is not set; image uploads disabled")
	}

	srv := server.New(config, api, m, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seedAction(c *cli.Context) error {
	config, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := db.NewStore(c.Context, config.Storage, logger)
	if err != nil {
		return errors.Wrap(err, "failed to open store")
	}
	defer store.Close()

	_, err = db.LoadData(c.Context, store, c.String("file"), c.String("owner"), logger)
	return err
}

func hashPasswordAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one password argument")
	}
	hash, err := token.HashPassword(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
