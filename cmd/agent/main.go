package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vrischmann/envconfig"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/actuator"
	ec2actuator "github.com/Sh00ty/network-lb/eip-failover-node/internal/actuator/ec2"
	mockactuator "github.com/Sh00ty/network-lb/eip-failover-node/internal/actuator/mock"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/classifier"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/config"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/engine"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/executor"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/journal"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/journal/postgres"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/memberlist"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/notifier"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/poolwatcher"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/scheduler"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/statusserver"
)

func loggerLevelFromString(level string) zerolog.Level {
	level = strings.ToLower(level)
	switch level {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

type Config struct {
	NodeID      string `envconfig:"EIP_NODE_ID"`
	LoggerLevel string `envconfig:"LOGGER_LEVEL"`

	PoolPath string `envconfig:"-"`

	MockActuator bool `envconfig:"MOCK_ACTUATOR,optional"`

	DatabaseHost     string `envconfig:"-"`
	DatabaseUser     string `envconfig:"-"`
	DatabasePassword string `envconfig:"-"`
	DatabasePort     uint16 `envconfig:"-"`

	QueueAddr  string `envconfig:"-"`
	QueueTopic string `envconfig:"-"`

	StatsdAddr string `envconfig:"-"`

	InitialNodeSyncTimeout time.Duration `envconfig:"INITIAL_NODE_SYNC_TIMEOUT"`
	NodeAddrsMask          string        `envconfig:"NODE_ADDR_MASK"`
	NodesCount             int           `envconfig:"EIP_TOTAL_NODES"`

	StatusAddr           string        `envconfig:"STATUS_ADDR,optional"`
	JournalFlushInterval time.Duration `envconfig:"JOURNAL_FLUSH_INTERVAL,optional"`
	ShutdownLeaveTimeout time.Duration `envconfig:"SHUTDOWN_LEAVE_TIMEOUT,optional"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	appCfg := Config{
		PoolPath:   os.Getenv("EIP_POOL_FILE"),
		StatsdAddr: os.Getenv("STATSD_ADDR"),

		DatabaseHost:     os.Getenv("DATABASE_HOST"),
		DatabaseUser:     os.Getenv("DATABASE_USER"),
		DatabasePassword: os.Getenv("DATABASE_PASSWORD"),

		QueueAddr:  os.Getenv("QUEUE_ADDR"),
		QueueTopic: os.Getenv("QUEUE_POOL_UPDATES_TOPIC"),
	}
	err := envconfig.Init(&appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read app config")
	}
	log.Logger = log.Level(loggerLevelFromString(appCfg.LoggerLevel))
	if appCfg.PoolPath == "" {
		appCfg.PoolPath = config.DefaultPoolPath
	}
	if appCfg.StatusAddr == "" {
		appCfg.StatusAddr = "0.0.0.0:8080"
	}
	if appCfg.JournalFlushInterval == 0 {
		appCfg.JournalFlushInterval = 30 * time.Second
	}
	if appCfg.ShutdownLeaveTimeout == 0 {
		appCfg.ShutdownLeaveTimeout = time.Second
	}
	if appCfg.DatabasePort == 0 {
		appCfg.DatabasePort = 5432
	}

	log.Warn().Msgf("running node %s", appCfg.NodeID)

	pool, err := config.LoadPool(appCfg.PoolPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load eip pool")
	}

	var m metrics.Metrics = metrics.Nop{}
	if appCfg.StatsdAddr != "" {
		m = metrics.NewStatsd(appCfg.NodeID, appCfg.StatsdAddr)
	}

	var act actuator.Actuator
	if appCfg.MockActuator {
		act = mockactuator.New()
	} else {
		act, err = ec2actuator.New(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init ec2 actuator")
		}
	}

	self := models.NodeID(appCfg.NodeID)

	memberCfg := memberlist.Config{
		SeedNodes: seedNodes(appCfg.NodeAddrsMask, appCfg.NodesCount),
	}
	err = envconfig.Init(&memberCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read memberlist config")
	}
	defaultEIP, _ := pool.EIPForZone(memberCfg.Zone)
	if defaultEIP == "" {
		log.Warn().Msgf("zone %s has no eip in the pool, running as claim-only node", memberCfg.Zone)
	}

	rawEvents := make(chan models.RawMemberEvent, 256)
	memberList, err := memberlist.New(ctx, memberCfg, defaultEIP, rawEvents)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init memberlist")
	}

	results := make(chan models.ActionResult, 64)
	retries := make(chan models.EIPID, 64)

	executorCfg := executor.Config{}
	err = envconfig.Init(&executorCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read executor config")
	}
	exec := executor.New(act, results, executorCfg, m)
	exec.Run(ctx)
	defer exec.Close()

	sched := scheduler.New(retries)
	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Error().Err(err).Msg("retry scheduler stopped")
		}
	}()

	decisions := notifier.New(1024)
	defer decisions.Close()
	if appCfg.DatabaseHost != "" {
		repo, err := postgres.NewRepo(
			ctx,
			appCfg.DatabaseUser,
			appCfg.DatabasePassword,
			appCfg.DatabaseHost,
			appCfg.DatabasePort,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init journal repository")
		}
		sender := journal.NewSender(decisions.GetEventChan(), repo, appCfg.JournalFlushInterval)
		go sender.Run(ctx)
	} else {
		go drainDecisions(ctx, decisions.GetEventChan())
	}

	engineCfg := engine.Config{}
	err = envconfig.Init(&engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read engine config")
	}
	var prober engine.Prober
	if engineCfg.ConfirmDown {
		prober = memberlist.NewProber()
	}
	eng := engine.New(engineCfg, self, pool, engine.Deps{
		Classifier: classifier.New(self, m),
		Membership: memberList,
		Holders:    act,
		Executor:   exec,
		Scheduler:  sched,
		Notifier:   decisions,
		Metrics:    m,
		Prober:     prober,

		RawEvents: rawEvents,
		Results:   results,
		Retries:   retries,
	})

	if appCfg.QueueAddr != "" {
		watcher := poolwatcher.New(appCfg.NodeID, appCfg.QueueAddr, appCfg.QueueTopic, eng)
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pool watcher stopped")
			}
		}()
	}

	server := statusserver.New(appCfg.StatusAddr, eng)
	go func() {
		if err := server.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to start status server")
		}
	}()
	defer func() {
		_ = server.Shutdown(context.Background())
	}()

	select {
	case <-ctx.Done():
		return
	case <-time.After(appCfg.InitialNodeSyncTimeout):
	}
	if err := memberList.Join(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to join gossip cluster")
	}
	log.Info().Msg("successfully joined gossip cluster")

	// No actuation happens before this: the engine is cold until it has
	// merged a full membership snapshot.
	if err := eng.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("cold start failed")
	}
	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine stopped")
		}
	}()

	<-ctx.Done()
	_ = memberList.GracefullyClose(appCfg.ShutdownLeaveTimeout)
}

func seedNodes(mask string, count int) []string {
	var seeds []string
	for nodeOrderedID := 0; nodeOrderedID < count; nodeOrderedID++ {
		seeds = append(seeds, fmt.Sprintf(mask, nodeOrderedID))
	}
	return seeds
}

func drainDecisions(ctx context.Context, events <-chan models.DecisionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, opened := <-events:
			if !opened {
				return
			}
		}
	}
}
