// Package detection computes detection probability and required SNR for a
// square-law (or coherent) detector with N-pulse integration.
//
// Models cover the Swerling 1 to 5 fluctuation cases, fully coherent
// integration and a real-valued (single rail) detector. Closed forms are
// evaluated in log space on top of gonum's regularised incomplete gamma
// functions so that N up to a few hundred and Pd close to 0 or 1 stay
// finite; Swerling 1 and 3 fall back to quadrature over the RCS distribution
// when the closed form is not usable.
//
// SNR values are per pulse in dB. Probabilities are clamped to
// [MinProbability, MaxProbability].
package detection
