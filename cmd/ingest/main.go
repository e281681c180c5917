// Package main runs the live ingestion service: track batches from the
// websocket feed through the PID pipeline, with the outputs flushed to
// PostgreSQL and optionally mirrored to ClickHouse for analysis.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tof-pid-lab/internal/calib"
	"tof-pid-lab/internal/ccdb"
	ccdbstub "tof-pid-lab/internal/ccdb/stub"
	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/evtime"
	"tof-pid-lab/internal/ingestion"
	"tof-pid-lab/internal/metadata"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/orchestrator"
	"tof-pid-lab/internal/storage"
	chstore "tof-pid-lab/internal/storage/clickhouse"
	"tof-pid-lab/internal/storage/memory"
	"tof-pid-lab/internal/storage/migrations"
	pgstore "tof-pid-lab/internal/storage/postgres"
)

func main() {
	feedEndpoint := flag.String("feed-endpoint", "", "Track feed WebSocket endpoint (required)")
	ccdbURL := flag.String("ccdb-url", "", "Calibration object store base URL")
	paramFile := flag.String("param-file", "", "Local parameter collection file (overrides the object store)")
	pass := flag.String("pass", metadata.PassFromMetadata, "Reconstruction pass, or 'metadata' to autodetect")
	passFallback := flag.String("pass-fallback", calib.DefaultPassFallback, "Fallback pass on a miss (empty disables)")
	fatalOnPassMiss := flag.Bool("fatal-on-pass-miss", false, "Escalate a pass miss to a fatal error")
	timeDependent := flag.Bool("time-dependent-response", false, "Refresh calibration on every run change")
	collisionSystem := flag.String("collision-system", "", "Collision system override (pp, PbPb); empty autodetects")
	evTimeTOF := flag.String("evtime-tof", "auto", "Detector-internal estimator: auto, on, off")
	evTimeFT0 := flag.String("evtime-ft0", "auto", "Forward-detector estimator: auto, on, off")
	speciesList := flag.String("species", "", "Comma-separated species (empty enables all)")
	tofParamsBetaMass := flag.Bool("tof-params-beta-mass", false, "Compute mass from the shift-corrected effective momentum")
	dataType := flag.String("data-type", "Run3", "Dataset type: Run2 or Run3")
	isMC := flag.Bool("mc", false, "Dataset is a Monte Carlo production")
	recoPass := flag.String("reco-pass", "", "Reconstruction pass name carried by the dataset")
	anchorPass := flag.String("anchor-pass", "", "Anchor pass name for MC datasets")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (mirrors analysis tables)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if *ccdbURL == "" && *paramFile == "" {
		logger.Fatal("--ccdb-url or --param-file is required")
	}
	if *postgresDSN == "" && !*useMemory {
		logger.Fatal("--postgres-dsn is required (or --use-memory)")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Dataset metadata.
	metaValues := map[string]string{
		metadata.KeyDataType: *dataType,
		metadata.KeyIsMC:     "false",
	}
	if *isMC {
		metaValues[metadata.KeyIsMC] = "true"
	}
	if *recoPass != "" {
		metaValues[metadata.KeyRecoPassName] = *recoPass
	}
	if *anchorPass != "" {
		metaValues[metadata.KeyAnchorPassName] = *anchorPass
	}
	meta := metadata.New(metaValues)

	// Calibration.
	var client ccdb.Client
	if *ccdbURL != "" {
		client = ccdb.NewHTTPClient(*ccdbURL)
	} else {
		client = ccdbstub.New(nil)
	}

	collSys := domain.CollSysUndefined
	if *collisionSystem != "" {
		var err error
		collSys, err = domain.ParseCollisionSystem(*collisionSystem)
		if err != nil {
			logger.Fatalf("Invalid collision system: %v", err)
		}
	}

	calibStore, err := calib.NewStore(ctx, client, meta, calib.Config{
		ReconstructionPass:          *pass,
		ReconstructionPassDefault:   *passFallback,
		FatalOnPassNotAvailable:     *fatalOnPassMiss,
		EnableTimeDependentResponse: *timeDependent,
		ParamFilePath:               *paramFile,
		CollisionSystem:             collSys,
	})
	if err != nil {
		logger.Fatalf("Calibration setup failed: %v", err)
	}

	// Output stores.
	var evtStore storage.EventTimeStore
	var nsStore storage.NsigmaStore
	var bmStore storage.BetaMassStore

	if *useMemory {
		evtStore = memory.NewEventTimeStore()
		nsStore = memory.NewNsigmaStore()
		bmStore = memory.NewBetaMassStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("PostgreSQL migrations failed: %v", err)
		}
		evtStore = pgstore.NewEventTimeStore(pool)
		nsStore = pgstore.NewNsigmaStore(pool)
		bmStore = pgstore.NewBetaMassStore(pool)
	}

	var chEvtStore storage.EventTimeStore
	var chNsStore storage.NsigmaStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse setup failed: %v", err)
		}
		defer conn.Close()
		chEvtStore = chstore.NewEventTimeStore(conn)
		chNsStore = chstore.NewNsigmaStore(conn)
	}

	species, err := parseSpecies(*speciesList)
	if err != nil {
		logger.Fatalf("Invalid species list: %v", err)
	}

	// Sinks accumulate per run; the flusher drains them at run
	// boundaries.
	evtTable := memory.NewEventTimeTable()
	fullTable := memory.NewNsigmaFullTable()
	betaTable := memory.NewBetaTable()
	massTable := memory.NewMassTable()

	orch, err := orchestrator.New(orchestrator.Options{
		CalibStore: calibStore,
		Metadata:   meta,
		EvTimeTOF:  parseModeFlag(logger, "evtime-tof", *evTimeTOF),
		EvTimeFT0:  parseModeFlag(logger, "evtime-ft0", *evTimeFT0),
		Species:    species,

		TOFParamsForBetaMass: *tofParamsBetaMass,

		Sinks: orchestrator.Sinks{
			Signal:     memory.NewSignalTable(),
			EventTime:  evtTable,
			TOFOnly:    memory.NewTOFOnlyTable(),
			Nsigma:     memory.NewNsigmaTable(),
			NsigmaFull: fullTable,
			Beta:       betaTable,
			Mass:       massTable,
		},
		Verbose: *verbose,
	})
	if err != nil {
		logger.Fatalf("Pipeline setup failed: %v", err)
	}

	feed, err := ingestion.NewFeed(ctx, *feedEndpoint, nil)
	if err != nil {
		logger.Fatalf("Feed connection failed: %v", err)
	}
	defer feed.Close()

	logger.Printf("Ingesting from %s", *feedEndpoint)

	fl := &flusher{
		evtTable: evtTable, fullTable: fullTable, betaTable: betaTable, massTable: massTable,
		evtStore: evtStore, nsStore: nsStore, bmStore: bmStore,
		chEvtStore: chEvtStore, chNsStore: chNsStore,
		logger: logger,
	}

	for {
		batch, err := feed.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ingestion.ErrSourceDrained) {
				break
			}
			logger.Fatalf("Feed error: %v", err)
		}

		if err := fl.runBoundary(ctx, batch.RunNumber); err != nil {
			logger.Fatalf("Flush failed: %v", err)
		}

		result, err := orch.ProcessBatch(ctx, batch)
		if err != nil {
			logger.Fatalf("Pipeline error: %v", err)
		}
		logger.Printf("run %d: processed %d tracks", result.RunNumber, result.TracksProcessed)
	}

	// Flush whatever the last run accumulated.
	flushCtx := context.Background()
	if err := fl.runBoundary(flushCtx, 0); err != nil {
		logger.Fatalf("Final flush failed: %v", err)
	}
	logger.Println("Shutdown complete")
}

// flusher drains the accumulating sinks into the persistent stores at
// run boundaries. Offsets mark how far each table has been flushed.
type flusher struct {
	evtTable  *memory.EventTimeTable
	fullTable *memory.NsigmaFullTable
	betaTable *memory.BetaTable
	massTable *memory.MassTable

	evtStore storage.EventTimeStore
	nsStore  storage.NsigmaStore
	bmStore  storage.BetaMassStore

	chEvtStore storage.EventTimeStore
	chNsStore  storage.NsigmaStore

	logger *log.Logger

	run                               int32
	evtOff, fullOff, betaOff, massOff int
}

// runBoundary flushes the previous run when the run number changes.
// Run 0 never matches a real run, so passing it forces a final flush.
func (f *flusher) runBoundary(ctx context.Context, next int32) error {
	if next == f.run {
		return nil
	}
	if f.run != 0 {
		if err := f.flush(ctx); err != nil {
			return err
		}
	}
	f.run = next
	return nil
}

func (f *flusher) flush(ctx context.Context) error {
	evts := f.evtTable.Rows()[f.evtOff:]
	fulls := f.fullTable.Rows()[f.fullOff:]
	betas := f.betaTable.Rows()[f.betaOff:]
	masses := f.massTable.Rows()[f.massOff:]
	f.evtOff += len(evts)
	f.fullOff += len(fulls)
	f.betaOff += len(betas)
	f.massOff += len(masses)

	if err := f.evtStore.InsertBulk(ctx, f.run, evts); err != nil {
		return err
	}
	if err := f.nsStore.InsertBulk(ctx, f.run, fulls); err != nil {
		return err
	}
	if err := f.bmStore.InsertBetaBulk(ctx, f.run, betas); err != nil {
		return err
	}
	if err := f.bmStore.InsertMassBulk(ctx, f.run, masses); err != nil {
		return err
	}

	if f.chEvtStore != nil {
		if err := f.chEvtStore.InsertBulk(ctx, f.run, evts); err != nil {
			return err
		}
	}
	if f.chNsStore != nil {
		if err := f.chNsStore.InsertBulk(ctx, f.run, fulls); err != nil {
			return err
		}
	}

	f.logger.Printf("run %d: flushed %d event times, %d species rows", f.run, len(evts), len(fulls))
	return nil
}

func parseModeFlag(logger *log.Logger, name, value string) int {
	switch strings.ToLower(value) {
	case "auto":
		return evtime.AutoSelect
	case "on", "enabled":
		return evtime.Enabled
	case "off", "disabled":
		return evtime.Disabled
	default:
		logger.Fatalf("Invalid --%s value %q (want auto, on or off)", name, value)
		return evtime.Disabled
	}
}

func parseSpecies(list string) ([]domain.Species, error) {
	if list == "" {
		return nil, nil
	}
	var out []domain.Species
	for _, name := range strings.Split(list, ",") {
		sp, err := domain.ParseSpecies(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}
