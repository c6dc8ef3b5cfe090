package main

import (
	"tontine-app/config"
	"tontine-app/database"
	routes "tontine-app/internal/app/http"
	"tontine-app/internal/app/ledger"
	"tontine-app/internal/infra/events"
	"tontine-app/internal/infra/logging"
	"tontine-app/internal/infra/persistence"
	"tontine-app/internal/infra/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type publisher interface {
	ledger.Publisher
	Close() error
}

func main() {
	config.LoadEnv()

	log, err := logging.New(logging.Config{Level: config.LOG_LEVEL, Dev: config.LOG_DEV})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !config.LOG_DEV {
		gin.SetMode(gin.ReleaseMode)
	}

	// users always live in Postgres, carnets may not
	database.InitDB(config.DB_URL, log)

	var repo ledger.Repository
	switch config.CARNET_BACKEND {
	case config.BackendAPI:
		repo = persistence.NewClient(config.API_BASE_URL, config.API_TOKEN, persistence.WithTimeout(config.API_TIMEOUT))
		log.Info("carnet backend", zap.String("backend", "api"), zap.String("base_url", config.API_BASE_URL))
	default:
		repo = store.NewCarnetStore(database.DB)
		log.Info("carnet backend", zap.String("backend", "db"))
	}

	var pub publisher = events.Noop{}
	if config.AMQP_URL != "" {
		p, err := events.NewPublisher(config.AMQP_URL, config.AMQP_EXCHANGE, config.AMQP_QUEUE, log)
		if err != nil {
			log.Fatal("failed to connect to broker", zap.Error(err))
		}
		pub = p
	}
	defer pub.Close()

	svc := ledger.NewService(repo, store.NewUserStore(database.DB), pub, log)

	r, err := routes.NewEngine(log, config.TRUSTED_PROXIES)
	if err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	routes.RegisterRoutes(r, routes.Deps{Log: log, Ledger: svc})

	log.Info("listening", zap.String("port", config.PORT))
	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
