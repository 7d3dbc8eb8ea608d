// Package radar owns the waveform and antenna model of a simulated radar.
//
// Responsibilities: transmitter and receiver channel geometry, piecewise
// interpolated antenna gain patterns, TDM channel delays, chirp and
// phase-code waveform definitions, and the derived scalars (max range,
// range resolution, unambiguous speed, virtual array).
// Key types: Transmitter, Receiver, Channel, Radar, Antenna.
//
// A Radar is built once by NewRadar, which validates the configuration and
// compiles the pattern tables. It is read-only afterwards and safe to share
// between simulation workers.
package radar
