package math

import "github.com/chewxy/math32"

const (
	Pi      = math32.Pi
	Epsilon = 1e-6
)

func Radians(degrees float32) float32 {
	return degrees * Pi / 180
}

func Degrees(radians float32) float32 {
	return radians * 180 / Pi
}

func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2Int returns floor(log2(n)) for n > 0.
func Log2Int(n int) int {
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}
