package calib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"tof-pid-lab/internal/ccdb"
	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/metadata"
	"tof-pid-lab/internal/observability"
)

// ErrPassUnavailable is returned when the requested reconstruction pass
// has no entry in the retrieved parameter collection and no fallback
// could (or may) be used.
var ErrPassUnavailable = errors.New("reconstruction pass unavailable")

// Default object store paths.
const (
	DefaultParametrizationPath = "TOF/Calib/Params"
	DefaultGrpLhcIfPath        = "GLO/Config/GRPLHCIF"
	DefaultPassFallback        = "unanchored"
)

// Config controls calibration loading.
type Config struct {
	// ParametrizationPath is the object store path of the parameter
	// collection.
	ParametrizationPath string
	// GrpLhcIfPath is the object store path of the LHC interface record
	// used to autodetect the collision system.
	GrpLhcIfPath string
	// ReconstructionPass selects the collection entry. The special value
	// metadata.PassFromMetadata resolves it from the dataset metadata.
	ReconstructionPass string
	// ReconstructionPassDefault is the fallback pass on a first miss.
	// Empty disables the fallback.
	ReconstructionPassDefault string
	// FatalOnPassNotAvailable escalates a first-pass miss to an error
	// instead of falling back.
	FatalOnPassNotAvailable bool
	// EnableTimeDependentResponse refreshes the parameters on every run
	// change instead of loading them once at startup.
	EnableTimeDependentResponse bool
	// ParamFilePath loads the parameter collection from a local file
	// instead of the object store. File parameters are never refreshed.
	ParamFilePath string
	// Directional time-shift curve paths. A ".json" suffix means a local
	// file, anything else is an object store path. Empty disables the
	// correction. The MC variants take precedence on MC datasets.
	TimeShiftPathPos   string
	TimeShiftPathNeg   string
	TimeShiftPathPosMC string
	TimeShiftPathNegMC string
	// CollisionSystem overrides autodetection when not CollSysUndefined.
	CollisionSystem domain.CollisionSystem
	// Timestamp is the validity time (ms) for the startup load.
	Timestamp int64
}

// withDefaults fills unset paths.
func (c Config) withDefaults() Config {
	if c.ParametrizationPath == "" {
		c.ParametrizationPath = DefaultParametrizationPath
	}
	if c.GrpLhcIfPath == "" {
		c.GrpLhcIfPath = DefaultGrpLhcIfPath
	}
	return c
}

// Store resolves calibration parameter bundles, caching them per run
// number. A Resolve call for the run already loaded is a no-op returning
// the cached bundle; only a run change (or, in time-dependent mode, a
// new validity timestamp with it) triggers a fetch.
type Store struct {
	client ccdb.Client
	meta   *metadata.Provider
	cfg    Config

	pass       string
	fileParams *Collection // non-nil when loaded from a local file

	lastRun   int32
	timestamp int64
	current   *Parameters
	collSys   domain.CollisionSystem
}

// NewStore creates a Store and performs the startup load: pass
// resolution, the initial parameter collection (unless time-dependent
// mode defers it to the first Resolve) and the time-shift curves.
func NewStore(ctx context.Context, client ccdb.Client, meta *metadata.Provider, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	pass, err := meta.ResolvePass(cfg.ReconstructionPass)
	if err != nil {
		return nil, err
	}

	s := &Store{
		client:    client,
		meta:      meta,
		cfg:       cfg,
		pass:      pass,
		lastRun:   -1,
		timestamp: cfg.Timestamp,
		collSys:   cfg.CollisionSystem,
	}

	if cfg.ParamFilePath != "" {
		log.Printf("loading resolution parametrization from file %s, pass %q", cfg.ParamFilePath, pass)
		collection, err := LoadCollectionFile(cfg.ParamFilePath)
		if err != nil {
			return nil, err
		}
		s.fileParams = collection
		params, err := s.bundleFromCollection(collection)
		if err != nil {
			return nil, err
		}
		s.current = params
	} else if !cfg.EnableTimeDependentResponse {
		log.Printf("loading resolution parametrization from %s at timestamp %d, pass %q", cfg.ParametrizationPath, cfg.Timestamp, pass)
		params, err := s.fetchBundle(ctx, cfg.Timestamp)
		if err != nil {
			return nil, err
		}
		s.current = params
	}

	if s.current != nil {
		if err := s.loadTimeShifts(ctx, s.current, true); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Pass returns the effective reconstruction pass label.
func (s *Store) Pass() string { return s.pass }

// CollisionSystem returns the configured or detected beam configuration.
// Valid after the first Resolve when autodetection is in use.
func (s *Store) CollisionSystem() domain.CollisionSystem { return s.collSys }

// Current returns the active bundle, nil before the first Resolve in
// time-dependent mode.
func (s *Store) Current() *Parameters { return s.current }

// Resolve returns the calibration bundle valid for the given run.
// Idempotent per run number: repeated calls return the cached bundle
// without touching the object store.
func (s *Store) Resolve(ctx context.Context, runNumber int32, timestamp int64) (*Parameters, error) {
	if s.lastRun == runNumber && s.current != nil {
		return s.current, nil
	}
	log.Printf("updating calibration from run %d to run %d (timestamp %d)", s.lastRun, runNumber, timestamp)
	observability.DefaultMetrics.CalibrationRefreshes.Inc()
	s.timestamp = timestamp

	if s.collSys == domain.CollSysUndefined {
		sys, err := s.detectCollisionSystem(ctx, timestamp)
		if err != nil {
			return nil, err
		}
		s.collSys = sys
		log.Printf("collision system detected: %s", sys)
	}

	var params *Parameters
	switch {
	case !s.cfg.EnableTimeDependentResponse && s.current != nil:
		// Startup bundle stays valid for the whole dataset; only the
		// identity key moves with the run.
		refreshed := *s.current
		params = &refreshed
	case s.fileParams != nil:
		var err error
		params, err = s.bundleFromCollection(s.fileParams)
		if err != nil {
			return nil, err
		}
		if err := s.loadTimeShifts(ctx, params, false); err != nil {
			return nil, err
		}
	default:
		var err error
		params, err = s.fetchBundle(ctx, timestamp)
		if err != nil {
			return nil, err
		}
		if err := s.loadTimeShifts(ctx, params, false); err != nil {
			return nil, err
		}
	}

	params.RunNumber = runNumber
	params.Timestamp = timestamp
	s.current = params
	// Committed only now: a failed refresh must not turn the retry for
	// the same run into a cache hit on the previous run's bundle.
	s.lastRun = runNumber
	return s.current, nil
}

// fetchBundle retrieves the parameter collection from the object store
// and extracts the configured pass.
func (s *Store) fetchBundle(ctx context.Context, timestamp int64) (*Parameters, error) {
	payload, err := s.client.Fetch(ctx, s.cfg.ParametrizationPath, timestamp, s.passMeta())
	if err != nil {
		observability.DefaultMetrics.CalibrationFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch parameter collection: %w", err)
	}
	observability.DefaultMetrics.CalibrationFetches.WithLabelValues("ok").Inc()
	collection, err := ParseCollection(payload)
	if err != nil {
		return nil, err
	}
	return s.bundleFromCollection(collection)
}

// bundleFromCollection applies the pass fallback policy. The bundle
// records the pass that actually supplied the coefficients, which is
// the fallback name after a first-pass miss.
func (s *Store) bundleFromCollection(collection *Collection) (*Parameters, error) {
	passUsed := s.pass
	set, ok := collection.Retrieve(passUsed)
	if !ok {
		if s.cfg.FatalOnPassNotAvailable || s.cfg.ReconstructionPassDefault == "" {
			return nil, fmt.Errorf("%w: pass %q not in collection (available: %s)",
				ErrPassUnavailable, s.pass, strings.Join(collection.PassNames(), ", "))
		}
		log.Printf("WARN: pass %q not in collection, falling back to %q", s.pass, s.cfg.ReconstructionPassDefault)
		observability.DefaultMetrics.PassFallbacks.Inc()
		passUsed = s.cfg.ReconstructionPassDefault
		set, ok = collection.Retrieve(passUsed)
		if !ok {
			return nil, fmt.Errorf("%w: fallback pass %q not in collection (available: %s)",
				ErrPassUnavailable, s.cfg.ReconstructionPassDefault, strings.Join(collection.PassNames(), ", "))
		}
	}
	return &Parameters{
		Pass:                passUsed,
		Timestamp:           s.timestamp,
		Resolution:          set.Resolution,
		ResolutionRun2:      set.ResolutionRun2,
		MomentumChargeShift: set.MomentumChargeShift,
	}, nil
}

// loadTimeShifts attaches the directional time-shift curves. File-backed
// curves load only at startup; store-backed curves reload on refresh
// when time-dependent mode is enabled. A curve missing from the store is
// not an error, the correction just stays disabled.
func (s *Store) loadTimeShifts(ctx context.Context, params *Parameters, startup bool) error {
	pathPos, pathNeg := s.cfg.TimeShiftPathPos, s.cfg.TimeShiftPathNeg
	if s.meta.IsMC() {
		pathPos, pathNeg = s.cfg.TimeShiftPathPosMC, s.cfg.TimeShiftPathNegMC
	}
	for _, dir := range []struct {
		path     string
		positive bool
	}{{pathPos, true}, {pathNeg, false}} {
		if dir.path == "" {
			continue
		}
		if strings.HasSuffix(dir.path, ".json") {
			if !startup {
				continue // file curves are loaded once
			}
			g, err := loadGraphFile(dir.path)
			if err != nil {
				return err
			}
			params.SetTimeShiftGraph(g, dir.positive)
			continue
		}
		if startup && s.cfg.EnableTimeDependentResponse {
			continue // deferred to the per-run refresh
		}
		payload, err := s.client.Fetch(ctx, dir.path, s.timestamp, s.passMeta())
		if err != nil {
			if errors.Is(err, ccdb.ErrObjectMissing) {
				log.Printf("WARN: no time shift object at %s, correction disabled", dir.path)
				continue
			}
			return fmt.Errorf("fetch time shift %s: %w", dir.path, err)
		}
		g, err := ParseGraph(payload)
		if err != nil {
			return fmt.Errorf("parse time shift %s: %w", dir.path, err)
		}
		params.SetTimeShiftGraph(g, dir.positive)
	}
	return nil
}

func (s *Store) passMeta() map[string]string {
	if s.pass == "" {
		return nil
	}
	return map[string]string{"RecoPassName": s.pass}
}

// grpLhcIf is the subset of the LHC interface record the store needs.
type grpLhcIf struct {
	CollisionSystem string `json:"collisionSystem"`
}

func (s *Store) detectCollisionSystem(ctx context.Context, timestamp int64) (domain.CollisionSystem, error) {
	payload, err := s.client.Fetch(ctx, s.cfg.GrpLhcIfPath, timestamp, nil)
	if err != nil {
		return domain.CollSysUndefined, fmt.Errorf("fetch LHC interface record: %w", err)
	}
	var grp grpLhcIf
	if err := json.Unmarshal(payload, &grp); err != nil {
		return domain.CollSysUndefined, fmt.Errorf("decode LHC interface record: %w", err)
	}
	return domain.ParseCollisionSystem(grp.CollisionSystem)
}

func loadGraphFile(path string) (*Graph, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read time shift file %s: %w", path, err)
	}
	return ParseGraph(payload)
}
