package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/reconcile"
	"github.com/mcdev12/draftroom/go/internal/draft/relay"
	"github.com/mcdev12/draftroom/go/internal/sidechannel"
	"github.com/mcdev12/draftroom/go/internal/store"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Draft   *draft.Service
	Gateway *gateway.Handler
	Broker  *gateway.Broker
	Relay   *relay.Relay

	nc *nats.Conn
}

func setupServices(pool *pgxpool.Pool, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Record store → state machine → gateway → transports
	clock := clockwork.NewRealClock()
	repo := store.NewPostgres(pool)

	app := draft.NewApp(repo, nil, clock)
	broker := gateway.NewBroker(app, clock)
	reconciler := reconcile.NewReconciler(repo, setupSideChannel(config), broker, clock)

	services := &Services{
		Draft:   draft.NewService(app, reconciler),
		Gateway: gateway.NewHandler(broker, clock, gateway.DefaultConnectionConfig()),
		Broker:  broker,
	}

	// With NATS the state machine publishes to the relay subject and
	// every instance's broker consumes it; without NATS events loop
	// back into the local broker directly.
	if url := config.natsURL(); url != "" {
		nc, err := relay.Connect(url)
		if err != nil {
			return nil, err
		}
		services.nc = nc
		services.Relay = relay.NewRelay(nc, broker, relay.DefaultSubjectPrefix)
		app.SetBroadcaster(relay.NewPublisher(nc, relay.DefaultSubjectPrefix))
	} else {
		app.SetBroadcaster(broker)
	}

	return services, nil
}

func setupSideChannel(config *Config) sidechannel.Store {
	addr := config.redisAddr()
	if addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, side-channel projections kept in memory")
		return sidechannel.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.redisPassword(),
		DB:       config.redisDB(),
	})
	log.Info().Str("addr", addr).Msg("side-channel backed by redis")
	return sidechannel.NewRedis(client)
}

func (s *Services) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
