// Package target models the point scatterers seen by the simulator.
//
// A Target pairs a Trajectory (Static, ConstantVelocity or Parametric) with a
// constant RCS and phase. Range and radial velocity toward a channel are
// computed from exact geometry at the requested time, so large excursions
// during the observation window stay accurate.
package target
