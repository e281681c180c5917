// Package orchestrator drives the per-batch PID pipeline:
// calibration refresh → signal extraction → event-time estimation →
// species channels.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"tof-pid-lab/internal/calib"
	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/evtime"
	"tof-pid-lab/internal/metadata"
	"tof-pid-lab/internal/observability"
	"tof-pid-lab/internal/response"
	"tof-pid-lab/internal/signal"
	"tof-pid-lab/internal/storage"
)

// Sinks collects the output tables the orchestrator emits into. Nil
// sinks disable their channel; every non-nil sink receives exactly one
// row per input track (per enabled species for the species tables), in
// input-track order.
type Sinks struct {
	Signal     storage.SignalSink
	EventTime  storage.EventTimeSink
	TOFOnly    storage.TOFOnlySink
	Nsigma     storage.NsigmaSink
	NsigmaFull storage.NsigmaFullSink
	Beta       storage.BetaSink
	Mass       storage.MassSink
}

// Options for creating an Orchestrator.
type Options struct {
	CalibStore *calib.Store
	Metadata   *metadata.Provider

	// Estimator switches: evtime.AutoSelect defers to the
	// collision-system default.
	EvTimeTOF int
	EvTimeFT0 int

	EvTime evtime.Config

	// Species enables the species channels; empty enables all.
	Species []domain.Species

	// TOFParamsForBetaMass computes the mass channel from the
	// shift-corrected effective momentum instead of the plain
	// flight-time fit momentum.
	TOFParamsForBetaMass bool

	Sinks Sinks

	Verbose bool
}

// Orchestrator processes track batches. The response model is selected
// once from the run metadata; calibration is refreshed at run
// boundaries, the estimator mode is resolved on the first batch once
// the collision system is known.
type Orchestrator struct {
	calibStore *calib.Store
	meta       *metadata.Provider

	cfgTOF, cfgFT0 int
	evtimeCfg      evtime.Config
	species        []domain.Species
	paramsBetaMass bool
	sinks          Sinks
	verbose        bool

	model     *response.ParamModel
	estimator *evtime.Estimator
}

// New creates an Orchestrator. Returns an error on an invalid species
// list or a contradictory estimator configuration.
func New(opts Options) (*Orchestrator, error) {
	if opts.CalibStore == nil {
		return nil, fmt.Errorf("orchestrator: calibration store is required")
	}
	if opts.Metadata == nil {
		return nil, fmt.Errorf("orchestrator: metadata is required")
	}

	species := opts.Species
	if len(species) == 0 {
		species = domain.AllSpecies()
	}
	for _, sp := range species {
		if !sp.Valid() {
			return nil, fmt.Errorf("orchestrator: invalid species %d", int(sp))
		}
	}

	if opts.EvTimeTOF == evtime.Disabled && opts.EvTimeFT0 == evtime.Disabled {
		return nil, evtime.ErrNoEstimator
	}

	return &Orchestrator{
		calibStore:     opts.CalibStore,
		meta:           opts.Metadata,
		cfgTOF:         opts.EvTimeTOF,
		cfgFT0:         opts.EvTimeFT0,
		evtimeCfg:      opts.EvTime,
		species:        species,
		paramsBetaMass: opts.TOFParamsForBetaMass,
		sinks:          opts.Sinks,
		verbose:        opts.Verbose,
	}, nil
}

// BatchResult summarizes one processed batch.
type BatchResult struct {
	RunNumber       int32
	TracksProcessed int
	SentinelRows    int
	SpeciesRows     int
}

// ProcessBatch runs the full pipeline over one batch. Tracks must be
// sorted by index; collisions may interleave freely.
func (o *Orchestrator) ProcessBatch(ctx context.Context, batch *domain.Batch) (*BatchResult, error) {
	start := time.Now()

	params, err := o.calibStore.Resolve(ctx, batch.RunNumber, batch.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("resolve calibration for run %d: %w", batch.RunNumber, err)
	}

	if o.model == nil {
		o.model = response.NewModel(params, o.meta.IsRun3())
	} else {
		o.model.SetParameters(params)
	}

	if o.estimator == nil {
		mode, err := evtime.ResolveMode(o.calibStore.CollisionSystem(), o.cfgTOF, o.cfgFT0)
		if err != nil {
			return nil, err
		}
		o.estimator = evtime.New(o.model, mode, o.evtimeCfg)
		o.log("estimator mode: tof=%v ft0=%v", mode.UseTOF, mode.UseFT0)
	}

	result := &BatchResult{
		RunNumber:       batch.RunNumber,
		TracksProcessed: len(batch.Tracks),
	}

	o.reserve(len(batch.Tracks))

	signals := o.extractSignals(batch.Tracks)

	var evTimes []domain.EventTimeRecord
	if o.meta.IsRun3() {
		var tofOnly []domain.TOFOnlyRecord
		evTimes, tofOnly = o.estimator.Process(batch.Tracks, batch.Collisions)
		if o.sinks.TOFOnly != nil {
			for _, r := range tofOnly {
				o.sinks.TOFOnly.Append(r)
			}
		}
	} else {
		evTimes = o.estimator.ProcessLegacy(batch.Tracks, batch.Collisions)
	}
	for _, r := range evTimes {
		observability.RecordEventTimeSource(evTimeSource(r))
		if o.sinks.EventTime != nil {
			o.sinks.EventTime.Append(r)
		}
	}

	o.emitSpeciesChannels(batch.Tracks, signals, evTimes, result)

	observability.DefaultMetrics.BatchDuration.Observe(time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulBatch.Set(float64(time.Now().Unix()))

	o.log("run %d: %d tracks, %d species rows, %d sentinels",
		result.RunNumber, result.TracksProcessed, result.SpeciesRows, result.SentinelRows)

	return result, nil
}

// extractSignals fills the raw-signal channel and returns the records
// for downstream use.
func (o *Orchestrator) extractSignals(tracks []domain.Track) []domain.SignalRecord {
	signals := make([]domain.SignalRecord, 0, len(tracks))
	for i := range tracks {
		rec := signal.Extract(&tracks[i])
		signals = append(signals, rec)
		if o.sinks.Signal != nil {
			o.sinks.Signal.Append(rec)
		}
		observability.RecordTrackProcessed()
		if !rec.Usable {
			observability.DefaultMetrics.TracksWithoutTOF.Inc()
		}
	}
	return signals
}

// emitSpeciesChannels fills the species tables and the
// species-independent beta and mass channels, one row per track each.
func (o *Orchestrator) emitSpeciesChannels(tracks []domain.Track, signals []domain.SignalRecord, evTimes []domain.EventTimeRecord, result *BatchResult) {
	for i := range tracks {
		trk := &tracks[i]
		usable := signals[i].Usable && evTimes[i].Err < domain.EvTimeErrNoCollision

		for _, sp := range o.species {
			nsigma := domain.NsigmaSentinel
			resolution := domain.NsigmaSentinel
			if usable {
				nsigma = response.Nsigma(o.model, trk, sp, evTimes[i].Value, evTimes[i].Err)
				resolution = o.model.ExpectedSigma(trk, sp, evTimes[i].Err)
			}

			if o.sinks.Nsigma != nil {
				o.sinks.Nsigma.Append(domain.NsigmaRecord{
					TrackIndex: trk.Index,
					Species:    sp,
					Binned:     domain.PackNsigma(nsigma),
				})
			}
			if o.sinks.NsigmaFull != nil {
				o.sinks.NsigmaFull.Append(domain.NsigmaFullRecord{
					TrackIndex: trk.Index,
					Species:    sp,
					Resolution: resolution,
					Nsigma:     nsigma,
				})
			}

			result.SpeciesRows++
			observability.DefaultMetrics.SpeciesRowsEmitted.WithLabelValues(sp.String()).Inc()
			if nsigma == domain.NsigmaSentinel {
				result.SentinelRows++
				observability.RecordSentinelRow("nsigma")
			}
		}

		beta := domain.BetaSentinel
		betaErr := domain.BetaSentinel
		mass := domain.MassSentinel
		if usable {
			beta = response.Beta(trk, evTimes[i].Value)
			betaErr = response.BetaSigma(trk, evTimes[i].Value, evTimes[i].Err)
			p := response.TOFMomentum(trk)
			if o.paramsBetaMass {
				p = o.model.EffectiveMomentum(trk)
			}
			mass = response.TOFMass(p, beta)
		}

		if o.sinks.Beta != nil {
			o.sinks.Beta.Append(domain.BetaRecord{TrackIndex: trk.Index, Beta: beta, BetaErr: betaErr})
			if beta == domain.BetaSentinel {
				result.SentinelRows++
				observability.RecordSentinelRow("beta")
			}
		}
		if o.sinks.Mass != nil {
			o.sinks.Mass.Append(domain.MassRecord{TrackIndex: trk.Index, Mass: mass})
			if mass == domain.MassSentinel {
				result.SentinelRows++
				observability.RecordSentinelRow("mass")
			}
		}
	}
}

// reserve pre-sizes all enabled sinks for the batch.
func (o *Orchestrator) reserve(n int) {
	if o.sinks.Signal != nil {
		o.sinks.Signal.Reserve(n)
	}
	if o.sinks.EventTime != nil {
		o.sinks.EventTime.Reserve(n)
	}
	if o.sinks.TOFOnly != nil {
		o.sinks.TOFOnly.Reserve(n)
	}
	if o.sinks.Nsigma != nil {
		o.sinks.Nsigma.Reserve(n * len(o.species))
	}
	if o.sinks.NsigmaFull != nil {
		o.sinks.NsigmaFull.Reserve(n * len(o.species))
	}
	if o.sinks.Beta != nil {
		o.sinks.Beta.Reserve(n)
	}
	if o.sinks.Mass != nil {
		o.sinks.Mass.Reserve(n)
	}
}

// evTimeSource labels a resolved event time by its contributing
// estimators, for the source breakdown metric.
func evTimeSource(rec domain.EventTimeRecord) string {
	hasTOF := rec.Flags&domain.EvTimeFlagTOF != 0
	hasT0AC := rec.Flags&domain.EvTimeFlagT0AC != 0
	switch {
	case hasTOF && hasT0AC:
		return "tof+ft0"
	case hasTOF:
		return "tof"
	case hasT0AC:
		return "ft0"
	case rec.Err < domain.EvTimeErrNoCollision:
		return "diamond"
	default:
		return "none"
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
