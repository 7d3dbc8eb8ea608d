package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/report"
)

// writeOutput renders to stdout for "-" and to a new file otherwise.
func writeOutput(path string, stdout io.Writer, render func(io.Writer) error) error {
	if path == "-" {
		return render(stdout)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("wrote %s", path)
	return nil
}

func runPd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("pd", stderr)
	pfaAxis := fs.String("pfa", "1e-6", "Probability of false alarm axis")
	snrAxis := fs.String("snr", "0:20:1", "SNR axis in dB")
	n := fs.Int("n", 1, "Pulses integrated")
	model := fs.String("model", "sw1", "Target model (sw1..sw5, coherent, real)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	pfas, err := config.ParseAxis(*pfaAxis)
	if err != nil {
		return fmt.Errorf("-pfa: %w", err)
	}
	snrs, err := config.ParseAxis(*snrAxis)
	if err != nil {
		return fmt.Errorf("-snr: %w", err)
	}
	m, err := detection.ParseModel(*model)
	if err != nil {
		return err
	}
	grid, err := detection.PdGrid(ctx, pfas, snrs, *n, m)
	if err != nil {
		return err
	}
	return report.WritePdGridCSV(stdout, pfas, snrs, grid)
}

func runSNR(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("snr", stderr)
	pd := fs.Float64("pd", 0.9, "Probability of detection")
	pfa := fs.Float64("pfa", 1e-6, "Probability of false alarm")
	n := fs.Int("n", 1, "Pulses integrated")
	model := fs.String("model", "sw1", "Target model (sw1..sw5, coherent, real)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	m, err := detection.ParseModel(*model)
	if err != nil {
		return err
	}
	snr, err := detection.RequiredSNR(*pd, *pfa, *n, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%.4f dB\n", snr)
	return nil
}

func runROC(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("roc", stderr)
	pfaAxis := fs.String("pfa", "1e-4,1e-6,1e-8", "One curve per Pfa")
	snrAxis := fs.String("snr", "0:20:0.5", "SNR axis in dB")
	n := fs.Int("n", 1, "Pulses integrated")
	model := fs.String("model", "sw1", "Target model (sw1..sw5, coherent, real)")
	out := fs.String("out", "roc.html", "Output file (.html or .csv, - for stdout HTML)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	pfas, err := config.ParseAxis(*pfaAxis)
	if err != nil {
		return fmt.Errorf("-pfa: %w", err)
	}
	snrs, err := config.ParseAxis(*snrAxis)
	if err != nil {
		return fmt.Errorf("-snr: %w", err)
	}
	m, err := detection.ParseModel(*model)
	if err != nil {
		return err
	}
	grid, err := detection.PdGrid(ctx, pfas, snrs, *n, m)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(*out), ".csv") {
		return writeOutput(*out, stdout, func(w io.Writer) error {
			return report.WritePdGridCSV(w, pfas, snrs, grid)
		})
	}
	title := fmt.Sprintf("Pd vs SNR, %v, N=%d", m, *n)
	return writeOutput(*out, stdout, func(w io.Writer) error {
		return report.ROCChart(w, title, pfas, snrs, grid)
	})
}

func runSNRTable(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("snrtable", stderr)
	pfa := fs.Float64("pfa", 1e-6, "Probability of false alarm")
	pd := fs.Float64("pd", 0.9, "Probability of detection")
	models := fs.String("models", "", "Comma-separated models (all if empty)")
	maxN := fs.Int("max-n", detection.DefaultMaxN, "Largest integration count")
	out := fs.String("out", "-", "CSV output file (- for stdout)")
	html := fs.String("html", "", "Also write an HTML chart to this file")
	dbPath := fs.String("db", "", "Store the table in this results database")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	dc := config.DetectionConfig{Pfa: pfa, Pd: pd, MaxN: maxN, Models: config.ParseModels(*models)}
	if err := dc.Validate(); err != nil {
		return err
	}
	ms, _ := dc.GetModels()
	t, err := detection.BuildSNRTable(ctx, dc.GetPfa(), dc.GetPd(), ms, dc.GetMaxN())
	if err != nil {
		return err
	}

	if *dbPath != "" {
		database, err := openStore(*dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		id, err := database.SaveSNRTable(t)
		if err != nil {
			return err
		}
		log.Printf("stored SNR table %s", id)
	}
	if *html != "" {
		if err := writeOutput(*html, stdout, func(w io.Writer) error { return report.SNRTableChart(w, t) }); err != nil {
			return err
		}
	}
	return writeOutput(*out, stdout, func(w io.Writer) error { return report.WriteSNRTableCSV(w, t) })
}
