package dice

import "math"

// uniformBits is the mantissa width used to build a float in [0, 1).
const uniformBits = 53

// Uniform returns a float64 in the open interval (0, 1) drawn from src.
func Uniform(src Source) float64 {
	// Shift by half a step so neither endpoint is produced; Normal takes a log.
	return (float64(src.Intn(1<<uniformBits)) + 0.5) / (1 << uniformBits)
}

// Normal draws one value from a normal distribution with the given mean and
// standard deviation using the Box-Muller transform, rounded to the nearest int.
//
// Precondition: src must be non-nil; stddev >= 0.
func Normal(src Source, mean, stddev float64) int {
	u1 := Uniform(src)
	u2 := Uniform(src)
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return int(math.Round(mean + stddev*z))
}
