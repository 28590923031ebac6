package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
	"github.com/andrescamacho/dispatch-go/internal/adapters/geocoder"
	"github.com/andrescamacho/dispatch-go/internal/adapters/graph"
	"github.com/andrescamacho/dispatch-go/internal/adapters/metrics"
	"github.com/andrescamacho/dispatch-go/internal/adapters/persistence"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/application/geocoding"
	"github.com/andrescamacho/dispatch-go/internal/application/stats"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/internal/domain/zones"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/database"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/pidfile"
)

var (
	serveForce  bool
	serveConfig string
)

// NewServeCommand creates the serve command running the daemon in the
// foreground.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch daemon",
		Long: `Run the dispatch daemon in the foreground.

The daemon loads the road network, connects the geocoder and the
database, and serves the dispatch API over HTTP until interrupted.

Examples:
  dispatch serve
  dispatch serve --config configs/config.yaml
  dispatch serve --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Dispatch Daemon v%s\n", Version)
			fmt.Println("====================")

			fmt.Println("Loading configuration...")
			cfg, err := config.LoadConfig(serveConfig)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Acquire PID file lock to prevent multiple instances
			fmt.Printf("Acquiring PID file lock: %s\n", cfg.Server.PIDFile)
			pf := pidfile.New(cfg.Server.PIDFile)

			if err := pf.Acquire(); err != nil {
				if !serveForce {
					return fmt.Errorf("failed to acquire PID file lock: %w\nUse --force to kill the existing daemon", err)
				}
				fmt.Println("Force mode enabled - attempting to kill existing daemon...")
				if killErr := pf.KillExisting(); killErr != nil {
					return fmt.Errorf("failed to kill existing daemon: %w", killErr)
				}
				fmt.Println("Existing daemon killed")
				if err := pf.Acquire(); err != nil {
					return fmt.Errorf("failed to acquire PID file lock after killing existing daemon: %w", err)
				}
			}
			defer func() {
				if err := pf.Release(); err != nil {
					log.Printf("Warning: failed to release PID file: %v", err)
				}
			}()
			fmt.Println("PID file lock acquired")

			return runDaemon(cfg)
		},
	}

	cmd.Flags().BoolVar(&serveForce, "force", false,
		"Kill any existing daemon and start a new one")
	cmd.Flags().StringVar(&serveConfig, "config", "",
		"Path to config file (default: search ./config.yaml, ./configs, /etc/dispatch)")

	return cmd
}

func runDaemon(cfg *config.Config) error {
	clock := shared.NewRealClock()

	// 1. Metrics registry, before anything registers collectors
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		fmt.Println("Metrics registry initialized")

		dispatchCollector := metrics.NewDispatchMetricsCollector()
		if err := dispatchCollector.Register(); err != nil {
			return fmt.Errorf("failed to register dispatch metrics: %w", err)
		}
		metrics.SetGlobalDispatchCollector(dispatchCollector)

		geocodeCollector := metrics.NewGeocodeMetricsCollector()
		if err := geocodeCollector.Register(); err != nil {
			return fmt.Errorf("failed to register geocode metrics: %w", err)
		}
		metrics.SetGlobalGeocodeCollector(geocodeCollector)
	}

	// 2. Database connection and schema
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Type)
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	fmt.Println("Database connected")

	// 3. Repositories
	geocodeCacheRepo := persistence.NewGormGeocodeCacheRepository(db)
	assignmentRepo := persistence.NewGormAssignmentRecordRepository(db)

	// 4. Road network provider over Overpass
	overpass := graph.NewOverpassClientWithConfig(
		cfg.Routing.Overpass.Endpoint,
		cfg.Routing.Overpass.RequestsPerSecond,
		cfg.Routing.Overpass.Timeout,
		clock,
	)
	box := graph.BBox{
		North: cfg.Routing.Preload.North,
		South: cfg.Routing.Preload.South,
		East:  cfg.Routing.Preload.East,
		West:  cfg.Routing.Preload.West,
	}
	network := graph.NewProviderWithConfig(overpass, box, cfg.Routing.Preload.AreaName, cfg.Routing.OnDemandRadiusMeters)
	fmt.Printf("Road network provider initialized (area: %s)\n", cfg.Routing.Preload.AreaName)

	// 5. Geocoder cascade with circuit breaker and cache
	nominatim := geocoder.NewNominatimClientWithConfig(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.RequestsPerSecond,
		cfg.Geocoder.Timeout,
		clock,
	)
	breaker := geocoder.NewCircuitBreaker(cfg.Geocoder.Breaker.MaxFailures, cfg.Geocoder.Breaker.Timeout, clock)
	cascade := geocoder.NewCascadeGeocoder(nominatim, geocodeCacheRepo, breaker, clock,
		cfg.Geocoder.DefaultCity, cfg.Geocoder.DefaultCountry)
	fmt.Printf("Geocoder initialized (%s)\n", cfg.Geocoder.BaseURL)

	// 6. Zone partition for candidate pre-filtering
	partition, err := buildPartition(cfg.Zones)
	if err != nil {
		return fmt.Errorf("failed to build zone partition: %w", err)
	}
	if partition != nil {
		fmt.Printf("Zone filter enabled (%d zones)\n", len(partition.Zones()))
	} else {
		fmt.Println("Zone filter disabled")
	}

	// 7. Dispatch engine
	sequencer := routing.NewSequencer(network, clock)
	evaluator := dispatch.NewEvaluator(sequencer)
	scorer := dispatch.NewScorer(network, evaluator)
	dispatcher := dispatch.NewDispatcher(scorer, cascade, partition, clock)
	batchDispatcher := dispatch.NewBatchDispatcher(dispatcher, clock)
	fmt.Println("Dispatch engine initialized")

	// 8. Mediator and command handlers
	counters := common.NewCounters()
	med := common.NewMediator()

	if cfg.Metrics.Enabled {
		commandCollector := metrics.NewCommandMetricsCollector()
		if err := commandCollector.Register(); err != nil {
			return fmt.Errorf("failed to register command metrics: %w", err)
		}
		med.Use(metrics.PrometheusMiddleware(commandCollector))
	}

	assignOrderHandler := dispatching.NewAssignOrderHandler(dispatcher, assignmentRepo, counters, clock)
	if err := common.RegisterHandler[*dispatching.AssignOrderCommand](med, assignOrderHandler); err != nil {
		return fmt.Errorf("failed to register AssignOrder handler: %w", err)
	}

	assignBatchHandler := dispatching.NewAssignBatchHandler(batchDispatcher, assignmentRepo, counters, clock)
	if err := common.RegisterHandler[*dispatching.AssignBatchCommand](med, assignBatchHandler); err != nil {
		return fmt.Errorf("failed to register AssignBatch handler: %w", err)
	}

	resequenceHandler := dispatching.NewResequenceRouteHandler(sequencer, cascade, clock)
	if err := common.RegisterHandler[*dispatching.ResequenceRouteCommand](med, resequenceHandler); err != nil {
		return fmt.Errorf("failed to register ResequenceRoute handler: %w", err)
	}

	geocodeHandler := geocoding.NewGeocodeAddressHandler(cascade, counters)
	if err := common.RegisterHandler[*geocoding.GeocodeAddressQuery](med, geocodeHandler); err != nil {
		return fmt.Errorf("failed to register GeocodeAddress handler: %w", err)
	}

	reverseHandler := geocoding.NewReverseGeocodeHandler(cascade, counters)
	if err := common.RegisterHandler[*geocoding.ReverseGeocodeQuery](med, reverseHandler); err != nil {
		return fmt.Errorf("failed to register ReverseGeocode handler: %w", err)
	}

	streetsHandler := geocoding.NewSearchStreetsHandler(network)
	if err := common.RegisterHandler[*geocoding.SearchStreetsQuery](med, streetsHandler); err != nil {
		return fmt.Errorf("failed to register SearchStreets handler: %w", err)
	}

	statsHandler := stats.NewServiceStatsHandler(assignmentRepo, geocodeCacheRepo, cascade, network, counters, clock)
	if err := common.RegisterHandler[*stats.ServiceStatsQuery](med, statsHandler); err != nil {
		return fmt.Errorf("failed to register ServiceStats handler: %w", err)
	}

	// 9. HTTP server
	srv := api.NewServer(cfg.Server, cfg.Metrics, med, engineDefaults(cfg.Dispatch), api.Health{
		Version:   Version,
		StartedAt: clock.Now(),
		DBPing: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Network:  network,
		Geocoder: cascade,
	})

	auditOut, closeAudit, err := auditSink(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer closeAudit()
	srv.SetAuditOutput(auditOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Preloading can take minutes against a public Overpass mirror, so
	// it runs behind the listener; the provider serves on-demand area
	// graphs until it finishes.
	if cfg.Routing.Preload.Enabled {
		go func() {
			if err := network.Preload(ctx); err != nil {
				log.Printf("Warning: road network preload failed, staying in on-demand mode: %v", err)
			}
		}()
	}

	fmt.Printf("\n✓ Daemon is ready on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("\nDaemon stopped")
	return nil
}

// auditSink opens the writer the request audit stream goes to. The
// returned closer is a no-op for the process streams.
func auditSink(cfg config.LoggingConfig) (io.Writer, func(), error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, func() {}, nil
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {
			if err := f.Close(); err != nil {
				log.Printf("Warning: failed to close audit log: %v", err)
			}
		}, nil
	default:
		return os.Stdout, func() {}, nil
	}
}

// buildPartition turns the zones config into a partition. Nil means the
// filter is disabled; an empty zone list selects the built-in
// Montevideo partition.
func buildPartition(cfg config.ZonesConfig) (*zones.Partition, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Zones) == 0 {
		return zones.DefaultMontevideo(), nil
	}

	zoneList := make([]zones.Zone, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		box, err := shared.NewBoundingBox(z.North, z.South, z.East, z.West)
		if err != nil {
			return nil, fmt.Errorf("invalid zone %s: %w", z.Name, err)
		}
		zoneList = append(zoneList, zones.Zone{Name: z.Name, Box: box})
	}
	return zones.NewPartition(zoneList, cfg.Adjacency)
}

// engineDefaults maps the dispatch config onto the engine options used
// when a request carries no overrides.
func engineDefaults(cfg config.DispatchConfig) api.Defaults {
	opts := dispatch.Options{
		Weights: dispatch.Weights{
			Distance:      cfg.Weights.Distance,
			Capacity:      cfg.Weights.Capacity,
			Urgency:       cfg.Weights.Urgency,
			Compatibility: cfg.Weights.Compatibility,
			Performance:   cfg.Weights.Performance,
			Interference:  cfg.Weights.Interference,
		},
		FastMode:          cfg.FastMode,
		MaxCandidates:     cfg.MaxCandidates,
		TimeBudget:        cfg.TimeBudget,
		SequencerBudget:   cfg.SequencerBudget,
		ServiceTimeMin:    cfg.ServiceTimeMinutes,
		MaxWorkers:        cfg.MaxWorkers,
		LowScoreThreshold: cfg.LowScoreThreshold,
	}

	return api.Defaults{
		Dispatch: opts,
		Batch: dispatch.BatchOptions{
			Dispatch: opts,
			Budget:   cfg.BatchBudget,
		},
		Sequencer: routing.Options{
			ServiceTimeMin: cfg.ServiceTimeMinutes,
			Budget:         cfg.SequencerBudget,
		},
	}
}
