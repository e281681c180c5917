// Package main runs the PID pipeline over a synthetic dataset with
// in-memory outputs. Useful for demos and for eyeballing channel values
// without any external services.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tof-pid-lab/internal/calib"
	ccdbstub "tof-pid-lab/internal/ccdb/stub"
	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/evtime"
	"tof-pid-lab/internal/ingestion"
	ingeststub "tof-pid-lab/internal/ingestion/stub"
	"tof-pid-lab/internal/metadata"
	"tof-pid-lab/internal/orchestrator"
	"tof-pid-lab/internal/pipeline"
	"tof-pid-lab/internal/storage/memory"
)

const demoCollection = `{"passes": {"apass1": {"resolution": [], "resolutionRun2": [], "momentumChargeShift": []}}}`

func main() {
	run := flag.Int("run", 544122, "Run number of the synthetic dataset")
	batches := flag.Int("batches", 3, "Number of synthetic batches to process")
	collisionSystem := flag.String("collision-system", "pp", "Collision system (pp or PbPb)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	meta := metadata.New(map[string]string{
		metadata.KeyDataType:     "Run3",
		metadata.KeyIsMC:         "false",
		metadata.KeyRecoPassName: "apass1",
	})

	client := ccdbstub.New(map[string][]byte{
		calib.DefaultParametrizationPath: []byte(demoCollection),
		calib.DefaultGrpLhcIfPath:        []byte(fmt.Sprintf(`{"collisionSystem": %q}`, *collisionSystem)),
	})

	calibStore, err := calib.NewStore(ctx, client, meta, calib.Config{
		ReconstructionPass: metadata.PassFromMetadata,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Calibration error: %v\n", err)
		os.Exit(1)
	}

	evtTable := memory.NewEventTimeTable()
	fullTable := memory.NewNsigmaFullTable()
	betaTable := memory.NewBetaTable()

	orch, err := orchestrator.New(orchestrator.Options{
		CalibStore: calibStore,
		Metadata:   meta,
		EvTimeTOF:  evtime.AutoSelect,
		EvTimeFT0:  evtime.AutoSelect,
		Species:    []domain.Species{domain.SpeciesPion, domain.SpeciesKaon, domain.SpeciesProton},
		Sinks: orchestrator.Sinks{
			Signal:     memory.NewSignalTable(),
			EventTime:  evtTable,
			TOFOnly:    memory.NewTOFOnlyTable(),
			Nsigma:     memory.NewNsigmaTable(),
			NsigmaFull: fullTable,
			Beta:       betaTable,
			Mass:       memory.NewMassTable(),
		},
		Verbose: *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	var source ingestion.BatchSource = newDemoSource(int32(*run), *batches)
	defer source.Close()

	var tracks, speciesRows, sentinels int
	for {
		batch, err := source.Next(ctx)
		if err == ingestion.ErrSourceDrained {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Source error: %v\n", err)
			os.Exit(1)
		}

		result, err := orch.ProcessBatch(ctx, batch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
			os.Exit(1)
		}
		tracks += result.TracksProcessed
		speciesRows += result.SpeciesRows
		sentinels += result.SentinelRows
	}

	fmt.Println("=== PID pipeline ===")
	fmt.Printf("  Collision system: %s\n", calibStore.CollisionSystem())
	fmt.Printf("  Pass:             %s\n", calibStore.Pass())
	fmt.Printf("  Tracks:           %d\n", tracks)
	fmt.Printf("  Species rows:     %d\n", speciesRows)
	fmt.Printf("  Sentinel rows:    %d\n", sentinels)

	if *verbose {
		fmt.Println("\nFirst batch channels:")
		evts := evtTable.Rows()
		betas := betaTable.Rows()
		for i, row := range fullTable.Rows() {
			if row.Species != domain.SpeciesPion || i/3 >= len(evts) {
				continue
			}
			trk := i / 3
			fmt.Printf("  track %3d  t_ev %8.2f ± %6.2f ps  nsigma(Pi) %8.3f  beta %7.4f\n",
				row.TrackIndex, evts[trk].Value, evts[trk].Err, row.Nsigma, betas[trk].Beta)
			if trk >= 9 {
				break
			}
		}
	}
}

// newDemoSource replays n copies of the synthetic batch under one run.
func newDemoSource(run int32, n int) ingestion.BatchSource {
	bs := make([]*domain.Batch, 0, n)
	for i := 0; i < n; i++ {
		bs = append(bs, pipeline.SampleBatch(run))
	}
	return ingeststub.NewSource(bs...)
}
