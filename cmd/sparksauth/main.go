package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sparksclub/walletauth/adapters/events"
	"github.com/sparksclub/walletauth/adapters/signature"
	"github.com/sparksclub/walletauth/adapters/store"
	"github.com/sparksclub/walletauth/adapters/tokenizer"
	"github.com/sparksclub/walletauth/adapters/users"
	"github.com/sparksclub/walletauth/internal/config"
	"github.com/sparksclub/walletauth/internal/logging"
	"github.com/sparksclub/walletauth/internal/metrics"
	"github.com/sparksclub/walletauth/ports"
	"github.com/sparksclub/walletauth/service"
	authhttp "github.com/sparksclub/walletauth/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Service stopped with error")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	m := metrics.New()
	wmLogger := logging.NewWatermillAdapter(log)

	signKey, err := signingKey(cfg.Auth.SigningKeyPath, log)
	if err != nil {
		return err
	}

	var (
		challenges  ports.ChallengeStore
		revocations ports.RevocationStore
		publisher   message.Publisher
		sweepable   []service.Sweepable
	)

	switch cfg.Store.Backend {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return err
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}

		challengeStore := store.NewRedisChallengeStore(redisClient, cfg.Store.RedisPrefix)
		challenges = challengeStore
		revocations = store.NewRedisRevocationStore(redisClient, cfg.Store.RedisPrefix)
		sweepable = append(sweepable, challengeStore)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return err
		}
	default:
		challengeStore := store.NewMemoryChallengeStore()
		revocationStore := store.NewMemoryRevocationStore()
		challenges = challengeStore
		revocations = revocationStore
		sweepable = append(sweepable, challengeStore, revocationStore)

		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}
	defer publisher.Close()

	var userStore ports.UserStore = users.NewMemoryStore()
	if cfg.Store.DatabaseURL != "" {
		pg, err := users.OpenPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		userStore = pg
	}

	authService := service.NewAuthService(
		service.Config{
			AppName:      cfg.Auth.AppName,
			ChallengeTTL: cfg.Auth.ChallengeTTL,
			SessionTTL:   cfg.Auth.SessionTTL,
		},
		service.Deps{
			Challenges:  challenges,
			Users:       userStore,
			Tokenizer:   tokenizer.NewJWTTokenizer(signKey, cfg.Auth.AppName),
			Verifier:    signature.NewEd25519Verifier(),
			Revocations: revocations,
			Events:      events.NewWatermillPublisher(publisher),
		},
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	sweeper, err := service.NewSweeper(cfg.Auth.SweepInterval, log, m, sweepable...)
	if err != nil {
		return err
	}
	sweeper.Start()

	router := authhttp.SetupRouter(authService, authhttp.RouterConfig{
		Cookie: authhttp.CookieConfig{
			Name:   cfg.Cookie.Name,
			Domain: cfg.Cookie.Domain,
			Secure: cfg.Cookie.Secure,
		},
		Logger:  log,
		Metrics: m,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"backend": cfg.Store.Backend,
		}).Info("Starting auth service")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sweeper.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

func signingKey(path string, log logrus.FieldLogger) (*ecdsa.PrivateKey, error) {
	if path != "" {
		return tokenizer.LoadKey(path)
	}
	// Sessions minted with an ephemeral key do not survive a restart
	log.Warn("No signing key configured, generating an ephemeral one")
	return tokenizer.GenerateKey()
}
