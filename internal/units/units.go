// Package units provides the physical constants and unit conversions shared
// by the radar model, the simulator and the report layer.
package units

import (
	"fmt"
	"math"
)

// Physical constants.
const (
	SpeedOfLight = 299792458.0    // m/s
	Boltzmann    = 1.380649e-23   // J/K
	NoiseTemp    = 290.0          // K, standard noise reference temperature
	FourPiCubed  = 1984.401707539 // (4π)³
)

// Speed unit identifiers accepted by ConvertSpeed.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed from metres per second to the target units.
// Unknown units return the input unchanged.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// FormatSpeed renders a speed in the requested units with its suffix.
func FormatSpeed(speedMPS float64, targetUnits string) string {
	if !IsValid(targetUnits) {
		targetUnits = MPS
	}
	return fmt.Sprintf("%.3f %s", ConvertSpeed(speedMPS, targetUnits), targetUnits)
}

// DBToLinear converts a power ratio in decibels to linear scale.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

// LinearToDB converts a linear power ratio to decibels. Zero maps to -Inf.
func LinearToDB(v float64) float64 {
	return 10 * math.Log10(v)
}

// DBToAmplitude converts a gain in decibels to a voltage ratio.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// DBmToWatts converts a power in dBm to watts.
func DBmToWatts(dbm float64) float64 {
	return math.Pow(10, (dbm-30)/10)
}

// WattsToDBm converts a power in watts to dBm.
func WattsToDBm(w float64) float64 {
	return 10*math.Log10(w) + 30
}

// Wavelength returns the free-space wavelength for a carrier frequency.
func Wavelength(fc float64) float64 {
	return SpeedOfLight / fc
}
