// Package pipeline runs a scenario end to end: radar and targets from the
// configuration, the baseband simulation, then range, Doppler and angle
// processing. It owns no signal processing itself.
package pipeline
