// Package processing turns a simulated baseband into range profiles,
// range-Doppler maps and beamformed angle-range maps.
//
// Responsibilities: amplitude windows (gonum dsp/window plus a
// Dolph-Chebyshev window), windowed FFTs along fast time and slow time
// (gonum dsp/fourier), phase-code matched filtering, the spatial matched
// filter over the virtual array, and axis helpers that map bins back to
// metres, metres per second and degrees.
//
// Key types: RangeProfile, RangeDopplerMap, AngleRangeMap, CartesianImage.
// All results are read-only once returned. Each stage fans out across
// channels (or angle bins) on an errgroup; FFT plans are per goroutine.
package processing
