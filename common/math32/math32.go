// Package math32 provides float32 versions of the math functions used by the
// client. Each one computes in float64 and rounds the result once.
package math32

import (
	"math"
)

const (
	Pi     = float32(math.Pi)
	HalfPi = float32(math.Pi / 2)
	TwoPi  = float32(2. * Pi)
)

func NaN() float32 {
	return float32(math.NaN())
}

func IsNaN(x float32) bool {
	return x != x
}

func Abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

func Floor(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

func Ceil(x float32) float32 {
	return float32(math.Ceil(float64(x)))
}

// Round returns the nearest integer, rounding half away from zero like C's roundf.
func Round(x float32) float32 {
	return float32(math.Round(float64(x)))
}

func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func Exp(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func SinCos(x float32) (float32, float32) {
	return Sin(x), Cos(x)
}

func Asin(x float32) float32 {
	return float32(math.Asin(float64(x)))
}

func Atan2(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

func Pow(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

// Mod returns the remainder of x/y with the sign of x, like C's fmodf.
func Mod(x, y float32) float32 {
	return float32(math.Mod(float64(x), float64(y)))
}

func Min(x, y float32) float32 {
	if x < y {
		return x
	}
	return y
}

func Max(x, y float32) float32 {
	if x > y {
		return x
	}
	return y
}

func Clamp(x, min, max float32) float32 {
	return Max(Min(x, max), min)
}

func Lerp(a, b, f float32) float32 {
	return a*(1-f) + b*f
}

// MapRange maps v from [low1,high1] onto [low2,high2]. It does not clamp,
// and the target range may be inverted.
func MapRange(v, low1, high1, low2, high2 float32) float32 {
	return low2 + ((high2-low2)*(v-low1))/(high1-low1)
}

// EaseInOutQuad eases t in [0,1] quadratically, symmetric about t=0.5.
func EaseInOutQuad(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

func RadiansFromDegrees(degrees float32) float32 {
	return (degrees * TwoPi) / 360
}

func DegreesFromRadians(radians float32) float32 {
	return (radians * 360) / TwoPi
}
