package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	portal "github.com/carevault/go-portal"
)

// zlog adapts zerolog to the portal Logger interface.
type zlog struct {
	l zerolog.Logger
}

func (z zlog) Debug(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z zlog) Info(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z zlog) Warn(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z zlog) Error(format string, args ...any) { z.l.Error().Msgf(format, args...) }

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("app", "portal").Logger()
	lgr := zlog{l: logger}

	ctx := context.Background()

	cfg, err := portal.LoadConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load configuration")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.TokenDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to open token database")
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	tokens := portal.NewBunTokenStore(db)
	if err := tokens.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("unable to initialize token store")
	}

	store := portal.NewStore(tokens, portal.WithStoreLogger(lgr))
	if sess, err := store.Restore(ctx); err == nil && sess.Authenticated() {
		lgr.Info("session restored, authenticated as %q", displayName(sess))
	}

	auth := portal.NewAuthenticator(store, cfg.APIBaseURL,
		portal.WithAuthenticatorLogger(lgr),
		portal.WithDebug(cfg.Debug),
	)
	patients := portal.NewPatientsClient(store, cfg.APIBaseURL,
		portal.WithPatientsLogger(lgr),
	)
	guard := portal.NewGuard(store, portal.WithGuardLogger(lgr))

	controller := portal.NewWebController(
		portal.WithControllerClients(store, auth, patients, guard),
		portal.WithControllerLogger(lgr),
		portal.WithControllerDebug(cfg.Debug),
	)

	engine := django.New(cfg.ViewsDir, ".html")

	app := fiber.New(fiber.Config{
		Views:             engine,
		PassLocalsToViews: true,
	})

	portal.RegisterRoutes(app, controller, guard)

	go func() {
		if err := app.Listen(cfg.Listen); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	lgr.Info("portal frontend listening on %s (api: %s)", cfg.Listen, cfg.APIBaseURL)

	waitExitSignal()

	if err := app.Shutdown(); err != nil {
		lgr.Error("shutdown error: %v", err)
	}
}

func displayName(sess portal.Session) string {
	if sess.User == nil {
		return "unknown user"
	}
	if sess.User.FullName != "" {
		return sess.User.FullName
	}
	return sess.User.ID
}

func waitExitSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}
