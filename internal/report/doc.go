// Package report renders simulation and detection results: PNG heatmaps of
// range-Doppler and angle-range maps (gonum/plot), HTML line charts of Pd
// curves and SNR tables (go-echarts) and CSV exports of SNR tables.
package report
