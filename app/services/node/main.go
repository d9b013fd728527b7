package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/chasenode/app/services/node/handlers"
	v1 "github.com/ardanlabs/chasenode/app/services/node/handlers/v1"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database/storage"
	"github.com/ardanlabs/chasenode/foundation/blockchain/genesis"
	"github.com/ardanlabs/chasenode/foundation/blockchain/memory"
	"github.com/ardanlabs/chasenode/foundation/blockchain/organizer"
	"github.com/ardanlabs/chasenode/foundation/blockchain/peer"
	"github.com/ardanlabs/chasenode/foundation/blockchain/worker"
	"github.com/ardanlabs/chasenode/foundation/events"
	"github.com/ardanlabs/chasenode/foundation/gate"
	"github.com/ardanlabs/chasenode/foundation/logger"
	"github.com/ardanlabs/chasenode/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			Beneficiary    string        `conf:"default:0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9"`
			GenesisPath    string        `conf:"help:path of the genesis file"`
			AccountsFolder string        `conf:"help:folder of account keys used for names"`
			DBType         string        `conf:"default:bolt"`
			DBPath         string        `conf:"default:zblock/chain.db"`
			MaxBytes       int64         `conf:"default:0"`
			MinFreeBytes   uint64        `conf:"default:67108864"`
			CacheSize      int           `conf:"default:4096"`
			PollInterval   time.Duration `conf:"default:5s"`
			SelectStrategy string        `conf:"default:tip"`
		}
		Memory struct {
			Multiple     int `conf:"default:4"`
			Threads      int `conf:"default:4"`
			WireSize     int `conf:"default:65536"`
			Workers      int `conf:"default:4"`
			MaxBlockSize int `conf:"default:4194304"`
		}
		Node struct {
			Relay        bool     `conf:"default:true"`
			HeadersFirst bool     `conf:"default:true"`
			Mining       bool     `conf:"default:false"`
			KnownPeers   []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "chase driven blockchain node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	ns, err := nameservice.New(cfg.State.AccountsFolder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	beneficiary, err := database.ToAccountID(cfg.State.Beneficiary)
	if err != nil {
		return fmt.Errorf("invalid beneficiary: %w", err)
	}

	store, err := storage.New(cfg.State.DBType, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open store: %w", err)
	}

	db, err := database.New(database.Config{
		Store:        store,
		Difficulty:   gen.Difficulty,
		Path:         filepath.Dir(cfg.State.DBPath),
		MaxBytes:     cfg.State.MaxBytes,
		MinFreeBytes: cfg.State.MinFreeBytes,
		CacheSize:    cfg.State.CacheSize,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer db.Close()

	// The bus carries every chase event between the chasers. Stopping it
	// last delivers the stop event to whatever is still subscribed.
	bus := chase.New()
	defer bus.Stop(nil)

	// The gate is the network collaborator of the storage chaser. Write
	// routes refuse traffic while it is suspended.
	gt := gate.New(log)

	// Every chase event is streamed to the websocket clients.
	evts := events.New()

	settings := chaser.BlockSettings{
		Genesis:     gen,
		Beneficiary: beneficiary,
	}

	stg := chaser.NewStorage(log, bus, db, gt, cfg.State.PollInterval)

	tx, err := chaser.NewTransaction(log, bus, db, gen.ChainID)
	if err != nil {
		return fmt.Errorf("unable to construct transaction chaser: %w", err)
	}

	tmpl, err := chaser.NewTemplate(log, bus, db, settings, cfg.State.SelectStrategy)
	if err != nil {
		return fmt.Errorf("unable to construct template chaser: %w", err)
	}

	starters := []interface {
		Name() string
		Start() error
		Stop()
	}{
		stg,
		tx,
		tmpl,
		chaser.NewObserver("events", log, bus, evts.Observe),
	}

	// A peer set is a collection of known nodes in the network so
	// transactions can be shared.
	peers := peer.NewPeerSet(cfg.Node.KnownPeers...)

	if cfg.Node.Relay {
		relay := peer.NewRelay(log, cfg.Web.PrivateHost, peers, db)
		starters = append(starters, chaser.NewObserver("relay", log, bus, relay.Observe))
	}

	if cfg.Node.HeadersFirst {
		cand, err := chaser.NewCandidate(log, bus, db, settings)
		if err != nil {
			return fmt.Errorf("unable to construct candidate chaser: %w", err)
		}
		starters = append(starters, cand)
	}

	for _, c := range starters {
		if err := c.Start(); err != nil {
			return fmt.Errorf("unable to start %s chaser: %w", c.Name(), err)
		}
		defer c.Stop()

		log.Infow("startup", "status", "chaser started", "chaser", c.Name())
	}

	// The organizer workers each bind one arena of the block memory pool.
	mem := memory.New(cfg.Memory.Multiple, cfg.Memory.Threads, cfg.Memory.WireSize)

	org := organizer.New(organizer.Config{
		Log:          log,
		Bus:          bus,
		Chain:        db,
		Memory:       mem,
		Workers:      cfg.Memory.Workers,
		MaxBlockSize: cfg.Memory.MaxBlockSize,
	})
	defer org.Shutdown()

	// The worker mines every new template and hands the solved block to
	// the organizer.
	if cfg.Node.Mining {
		w := worker.Run(log, tmpl, org)
		defer w.Shutdown()

		obs := chaser.NewObserver("worker", log, bus, w.Observe)
		if err := obs.Start(); err != nil {
			return fmt.Errorf("unable to start worker chaser: %w", err)
		}
		defer obs.Stop()

		log.Infow("startup", "status", "mining started", "beneficiary", cfg.State.Beneficiary)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, db)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	routes := v1.Config{
		Log:       log,
		Genesis:   gen,
		Bus:       bus,
		DB:        db,
		Tx:        tx,
		Template:  tmpl,
		Storage:   stg,
		Organizer: org,
		Gate:      gt,
		Evts:      evts,
		NS:        ns,
		Peers:     peers,
		Host:      cfg.Web.PrivateHost,
		Relay:     cfg.Node.Relay,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		V1:       routes,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		V1:       routes,
	})

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
