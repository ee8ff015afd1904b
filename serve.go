package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gmcfx/GM-Capital/internal/config"
	"github.com/gmcfx/GM-Capital/internal/handler"
	"github.com/gmcfx/GM-Capital/internal/ledger"
	"github.com/gmcfx/GM-Capital/internal/margin"
	"github.com/gmcfx/GM-Capital/internal/metrics"
	"github.com/gmcfx/GM-Capital/internal/repository"
	"github.com/gmcfx/GM-Capital/internal/service"

	psProto "github.com/OVantsevich/Price-Service/proto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// feedRetryDelay pause before the upstream price stream is reopened
const feedRetryDelay = time.Second

type storage struct {
	positions ledger.PositionStore
	accounts  ledger.AccountStore
	tx        service.Transactor
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the http api, websocket hub and mark-to-market worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.MainConfig) error {
	instruments, err := config.LoadInstruments(cfg.InstrumentsFile)
	if err != nil {
		return err
	}
	catalog := instruments.Catalog

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	g, gctx := errgroup.WithContext(ctx)

	var feed service.QuoteFeed
	switch cfg.QuoteSource {
	case config.QuoteSim:
		sim := repository.NewSimulator(catalog, repository.DefaultBasePrices, simSeed(cfg.SimSeed))
		feed = sim
		g.Go(func() error { return sim.Run(gctx, cfg.SimInterval, nil) })
	case config.QuoteRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		feed = repository.NewQuoteCache(rdb)
	case config.QuoteGRPC:
		conn, err := grpc.NewClient(cfg.PriceServiceAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("main - serve - NewClient: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		priceService := repository.NewPriceServiceRepository(psProto.NewPriceServiceClient(conn), catalog)
		feed = priceService
		g.Go(func() error { return retry(gctx, "price service", priceService.Run) })
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthChecker()
	bus := repository.NewEventBus(0, 0)

	opts := []service.Option{
		service.WithPublisher("bus", bus),
		service.WithMetrics(m),
		service.WithTimeouts(service.Timeouts{Quote: cfg.QuoteTimeout, Store: cfg.StoreTimeout, Lock: cfg.LockTimeout}),
	}
	if cfg.NatsURL != "" {
		nc, js, err := repository.ConnectJetStream(cfg.NatsURL)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = nc.Drain() })
		if err = repository.EnsureEventsStream(ctx, js); err != nil {
			return err
		}
		opts = append(opts, service.WithPublisher("nats", repository.NewNATSPublisher(js)))
	}

	trading := service.NewTrading(
		ledger.New(store.positions, catalog),
		ledger.NewBalances(store.accounts),
		margin.NewEngine(instruments.MarginRates),
		catalog,
		feed,
		store.tx,
		opts...,
	)

	tradingHandler := handler.NewTrading(trading, catalog)
	hub := handler.NewHub(bus, tradingHandler)
	marker := service.NewMarker(trading, cfg.MarkInterval, hub.PushMark)
	server := handler.NewServer(cfg.Host, cfg.Port, handler.NewRouter(tradingHandler, hub, m.Handler(), health))

	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return marker.Run(gctx) })
	health.SetReady(true)

	logrus.WithFields(logrus.Fields{
		"storage":     cfg.Storage,
		"quotes":      cfg.QuoteSource,
		"instruments": len(catalog),
		"nats":        cfg.NatsURL != "",
	}).Info("main - serve: started")

	err = g.Wait()
	health.SetReady(false)
	return err
}

func openStorage(ctx context.Context, cfg *config.MainConfig) (*storage, func(), error) {
	if cfg.Storage == config.StorageMemory {
		mem := repository.NewMemory()
		return &storage{positions: mem.Positions(), accounts: mem.Accounts(), tx: mem.Transactor()}, func() {}, nil
	}
	pool, err := dbConnection(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	runner := repository.NewPgxWithinTransactionRunner(pool)
	return &storage{
		positions: repository.NewPositionRepository(runner),
		accounts:  repository.NewAccountRepository(runner),
		tx:        repository.NewPgxTransactor(pool),
	}, pool.Close, nil
}

// retry reruns fn until ctx is done
func retry(ctx context.Context, name string, fn func(context.Context) error) error {
	for {
		err := fn(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithField("feed", name).Warnf("main - retry: %v", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(feedRetryDelay):
		}
	}
}

// simSeed zero seeds from the clock
func simSeed(seed uint64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return seed
}

func newSimulateCmd() *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish simulated quotes to redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			instruments, err := config.LoadInstruments(cfg.InstrumentsFile)
			if err != nil {
				return err
			}
			rdb, err := repository.NewRedisClient(cmd.Context(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if !cmd.Flags().Changed("seed") {
				seed = cfg.SimSeed
			}
			sim := repository.NewSimulator(instruments.Catalog, repository.DefaultBasePrices, simSeed(seed))
			cache := repository.NewQuoteCache(rdb)
			logrus.WithFields(logrus.Fields{
				"redis":    cfg.RedisAddr,
				"interval": cfg.SimInterval.String(),
			}).Info("main - simulate: publishing quotes")
			return sim.Run(cmd.Context(), cfg.SimInterval, cache.SetQuotes)
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random walk seed, 0 seeds from time")
	return cmd
}
