package simulator

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/units"
)

// NoisePower returns the receiver noise power referred to the RF output in
// watts: k·T0·B·F·G_rf, with B the sampled noise bandwidth.
func NoisePower(r *radar.Radar) float64 {
	rx := r.Receiver()
	return units.Boltzmann * units.NoiseTemp * r.NoiseBandwidth() *
		units.DBToLinear(rx.NoiseFigure) * units.DBToLinear(rx.RFGain)
}

// NoiseVoltage returns the RMS noise voltage at the baseband output:
// sqrt(P·R_L) scaled by the baseband gain.
func NoiseVoltage(r *radar.Radar) float64 {
	rx := r.Receiver()
	return math.Sqrt(NoisePower(r)*rx.LoadResistance) * units.DBToAmplitude(rx.BasebandGain)
}

// addNoise adds white Gaussian noise of total RMS voltage rms drawn from src.
// Complex samples split the power evenly between the rails.
func addNoise(data []complex128, rms float64, realOnly bool, src rand.Source) {
	if realOnly {
		rail := distuv.Normal{Mu: 0, Sigma: rms, Src: src}
		for i := range data {
			data[i] += complex(rail.Rand(), 0)
		}
		return
	}
	rail := distuv.Normal{Mu: 0, Sigma: rms / math.Sqrt2, Src: src}
	for i := range data {
		data[i] += complex(rail.Rand(), rail.Rand())
	}
}
