// Package permute maps track numbers onto a keyed pseudo-random order without
// storing a shuffle table.
//
// The permutation is a balanced Feistel network over the smallest power-of-two
// domain covering n, restricted to [0, n) by cycle-walking.
package permute

import "math/bits"

// DefaultRounds is the number of Feistel rounds used for track ordering.
const DefaultRounds = 3

// roundStride decorrelates the round keys (golden ratio).
const roundStride = 0x9E3779B1

// Permute returns the image of x under the permutation of [0, n) selected by
// key and rounds. For fixed (n, key, rounds) the mapping is a bijection.
// x must be lower than n.
func Permute(x, n, key uint32, rounds int) uint32 {
	if n <= 1 {
		return 0
	}

	r := uint(bits.Len32(n - 1))

	y := x
	for {
		y = feistel(y, r, key, rounds)
		if y < n {
			return y
		}
	}
}

// feistel permutes the r low bits of x (1 <= r <= 32).
func feistel(x uint32, r uint, key uint32, rounds int) uint32 {
	lBits := r / 2
	rBits := r - lBits

	maskL := mask(lBits)
	maskR := mask(rBits)

	left := (x >> rBits) & maskL
	right := x & maskR

	for round := range rounds {
		rk := key ^ uint32(round)*roundStride

		f := mix(right, rk) & maskL
		left, right = right, (left^f)&maskL

		lBits, rBits = rBits, lBits
		maskL, maskR = maskR, maskL
	}

	return ((left << rBits) | right) & mask(r)
}

// mix is the keyed round function.
func mix(v, rk uint32) uint32 {
	z := v + rk
	z ^= z >> 16
	z *= 0x7FEB352D
	z ^= z >> 15
	z *= 0x846CA68B
	z ^= z >> 16
	return z
}

func mask(n uint) uint32 {
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<n - 1
}
