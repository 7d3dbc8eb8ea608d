// Package config loads JSON scenario files describing a radar, its targets
// and the processing and detection settings applied to the simulated data.
//
// Required sections (transmitter, receiver, targets) are plain values; the
// optional sections use pointer fields whose Get* methods supply defaults, so
// partial files are safe. The canonical scenario lives in
// config/scenario.defaults.json.
package config
