package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/pipeline"
	"github.com/banshee-data/radarsim/internal/report"
	"github.com/banshee-data/radarsim/internal/security"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/units"
)

func runSimulate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("simulate", stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "Scenario JSON file")
	outDir := fs.String("out", "", "Directory for summary.json and PNG heatmaps (none if empty)")
	dbPath := fs.String("db", "", "Record the run in this results database")
	seed := fs.Uint64("seed", 0, "Override the scenario seed (0 keeps it)")
	noNoise := fs.Bool("no-noise", false, "Disable receiver noise")
	cartesian := fs.Int("cartesian", 200, "Cartesian image size in pixels per side")
	prefixName := fs.Bool("prefix-name", false, "Prefix output files with the scenario name")
	speedUnits := fs.String("units", units.MPS, "Units for the reported peak velocity (mps, mph, kmph, kph)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !units.IsValid(*speedUnits) {
		return simerr.Invalid("invalid units %q, must be one of %v", *speedUnits, units.ValidUnits)
	}

	cfg, err := config.LoadScenarioConfig(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Simulation.Seed = seed
	}
	if *noNoise {
		cfg.Simulation.DisableNoise = noNoise
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	summary := res.Summary()
	if p := summary.Peaks; p.RangeM != nil && p.VelocityMPS != nil {
		fmt.Fprintf(stderr, "peak: %.2f m, %s\n", *p.RangeM, units.FormatSpeed(*p.VelocityMPS, *speedUnits))
	}

	if *dbPath != "" {
		database, err := openStore(*dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		run, err := res.Record()
		if err != nil {
			return err
		}
		if err := database.RecordRun(run); err != nil {
			return err
		}
		log.Printf("recorded run %s", run.ID)
	}

	if *outDir != "" {
		prefix := ""
		if *prefixName {
			prefix = cfg.Name + "_"
		}
		if err := writeOutputs(res, summary, *outDir, prefix, *cartesian); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// writeOutputs writes summary.json and one PNG per available map into dir.
// Every file name starts with prefix.
func writeOutputs(res *pipeline.Result, summary pipeline.Summary, dir, prefix string, size int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	summaryPath, err := security.OutputPath(dir, prefix+"summary.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	type output struct {
		name string
		h    *report.Heatmap
	}
	var maps []output
	if res.RangeDoppler != nil {
		maps = append(maps, output{prefix + "range_doppler.png", report.RangeDopplerHeatmap(res.RangeDoppler, 0)})
	}
	if res.AngleRange != nil {
		img, err := res.AngleRange.Cartesian(size, size)
		if err != nil {
			return err
		}
		maps = append(maps,
			output{prefix + "angle_range.png", report.AngleRangeHeatmap(res.AngleRange)},
			output{prefix + "cartesian.png", report.CartesianHeatmap(img)},
		)
	}
	for _, m := range maps {
		path, err := security.OutputPath(dir, m.name)
		if err != nil {
			return err
		}
		if err := m.h.Save(path); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}
