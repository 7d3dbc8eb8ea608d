package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/radarsim/internal/detection"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// WriteSNRTableCSV writes one row per integration count: N, then the required
// SNR in dB for each model.
func WriteSNRTableCSV(w io.Writer, t *detection.SNRTable) error {
	if t == nil || len(t.SNR) != len(t.Models) {
		return fmt.Errorf("SNR table is empty or inconsistent")
	}
	cw := csv.NewWriter(w)
	header := []string{"N"}
	for _, m := range t.Models {
		header = append(header, m.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, n := range t.N {
		row := []string{strconv.Itoa(n)}
		for mi := range t.Models {
			row = append(row, formatFloat(t.SNR[mi][i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSNRTableCSV parses the format written by WriteSNRTableCSV. Pfa and Pd
// are not part of the file and are left zero.
func ReadSNRTableCSV(r io.Reader) (*detection.SNRTable, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 || len(records[0]) < 2 || records[0][0] != "N" {
		return nil, fmt.Errorf("SNR table CSV needs an N header and at least one row")
	}
	t := &detection.SNRTable{}
	for _, name := range records[0][1:] {
		m, err := detection.ParseModel(name)
		if err != nil {
			return nil, err
		}
		t.Models = append(t.Models, m)
		t.SNR = append(t.SNR, nil)
	}
	for line, rec := range records[1:] {
		n, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid N %q: %w", line+2, rec[0], err)
		}
		t.N = append(t.N, n)
		for mi := range t.Models {
			v, err := strconv.ParseFloat(rec[mi+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid SNR %q: %w", line+2, rec[mi+1], err)
			}
			t.SNR[mi] = append(t.SNR[mi], v)
		}
	}
	return t, nil
}

// WritePdGridCSV writes the [pfa][snr] grid with one row per SNR and one
// column per Pfa, matching the layout ROC curves are usually tabulated in.
func WritePdGridCSV(w io.Writer, pfas, snrsDB []float64, grid [][]float64) error {
	if len(grid) != len(pfas) {
		return fmt.Errorf("grid has %d rows for %d pfa values", len(grid), len(pfas))
	}
	cw := csv.NewWriter(w)
	header := []string{"snr_db"}
	for _, pfa := range pfas {
		header = append(header, "pfa="+strconv.FormatFloat(pfa, 'g', -1, 64))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for j, snr := range snrsDB {
		row := []string{formatFloat(snr)}
		for i := range pfas {
			if len(grid[i]) != len(snrsDB) {
				return fmt.Errorf("grid row %d has %d values for %d SNR values", i, len(grid[i]), len(snrsDB))
			}
			row = append(row, strconv.FormatFloat(grid[i][j], 'g', 10, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
