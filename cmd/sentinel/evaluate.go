package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"IrrigationSentinel/internal/collector"
	"IrrigationSentinel/internal/config"
	"IrrigationSentinel/internal/export"
	"IrrigationSentinel/internal/pipeline"
	"IrrigationSentinel/internal/recorder"
	"IrrigationSentinel/internal/render"
)

type evaluateOptions struct {
	csvPath string
	outPath string
	asJSON  bool
	record  bool
}

func evaluateCmd(cfgPath *string) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate [csv-path]",
		Short: "Evaluate an observation series and print the irrigation schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.csvPath = args[0]
			}
			var rec recorder.Recorder = recorder.NewNoopRecorder()
			if opts.record {
				rec = openRecorder(cfg)
			}
			defer rec.Close()
			return runEvaluate(cmd.Context(), cfg, opts, rec, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write the annotated schedule to this CSV file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print decisions as JSON instead of a table")
	cmd.Flags().BoolVar(&opts.record, "record", false, "store the run in the SQLite history")
	addParameterFlags(cmd)
	return cmd
}

// runEvaluate collects, evaluates and presents one series. Missing or empty
// input prints the no-data notice and is not an error.
func runEvaluate(ctx context.Context, cfg *config.Config, opts evaluateOptions, rec recorder.Recorder, stdout io.Writer) error {
	p, err := cfg.Parameters()
	if err != nil {
		return err
	}

	var src collector.Source
	if opts.csvPath != "" {
		src = collector.NewCSVSource(opts.csvPath)
	} else if src, err = collector.NewSource(cfg); err != nil {
		if errors.Is(err, collector.ErrNoData) {
			fmt.Fprintln(stdout, render.NoData())
			return nil
		}
		return err
	}

	// CSV input keeps its extra columns for the exported file.
	tbl := &collector.Table{}
	if cs, ok := src.(*collector.CSVSource); ok {
		if tbl, err = cs.FetchTable(ctx); err != nil {
			return fmt.Errorf("collect from %s: %w", cs.Name(), err)
		}
	} else if tbl.Observations, err = collector.NewCollector(src).Collect(ctx); err != nil {
		return err
	}
	obs := tbl.Observations
	if len(obs) == 0 {
		fmt.Fprintln(stdout, render.NoData())
		return nil
	}

	snap := pipeline.Run(src.Name(), obs, p, cfg.Evaluation.Workers)
	if err := rec.RecordRun(snap); err != nil {
		log.Printf("[WARN] record run: %v", err)
	}

	if opts.asJSON {
		if err := export.WriteJSON(stdout, snap.Decisions); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(stdout, render.Table(snap.Decisions))
		fmt.Fprintln(stdout, render.Summary(snap.Summary, p))
	}

	if opts.outPath != "" {
		if err := writeScheduleFile(opts.outPath, snap, tbl); err != nil {
			return err
		}
		log.Printf("[INFO] schedule written to %s", opts.outPath)
	}
	return nil
}

func writeScheduleFile(path string, snap *recorder.RunSnapshot, tbl *collector.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSVWithExtra(f, snap.Decisions, tbl.ExtraHeader, tbl.Extra); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
