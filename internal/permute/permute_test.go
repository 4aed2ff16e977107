package permute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermute_IsBijection(t *testing.T) {
	keys := []uint32{0, 1, 0xDEADBEEF, 0x12345678, 0xFFFFFFFF}
	for n := uint32(1); n <= 300; n++ {
		for _, key := range keys {
			for _, rounds := range []int{1, 2, DefaultRounds, 5} {
				seen := make([]bool, n)
				for x := range n {
					y := Permute(x, n, key, rounds)
					require.Less(t, y, n, "n=%d key=%#x rounds=%d x=%d", n, key, rounds, x)
					require.False(t, seen[y], "n=%d key=%#x rounds=%d: %d hit twice", n, key, rounds, y)
					seen[y] = true
				}
			}
		}
	}
}

func TestPermute_SingleElement(t *testing.T) {
	for _, key := range []uint32{0, 7, 0xDEADBEEF} {
		for _, rounds := range []int{0, 1, DefaultRounds} {
			assert.Equal(t, uint32(0), Permute(0, 1, key, rounds))
		}
	}
}

func TestPermute_LargeDomain(t *testing.T) {
	const n = 1 << 20
	for _, x := range []uint32{0, 1, n / 2, n - 1} {
		assert.Less(t, Permute(x, n, 0xCAFEF00D, DefaultRounds), uint32(n))
	}
}

func TestPermute_KeyChangesOrder(t *testing.T) {
	differs := 0
	total := 0
	for n := uint32(4); n <= 200; n++ {
		total++
		for x := range n {
			if Permute(x, n, 0x1111, DefaultRounds) != Permute(x, n, 0x2222, DefaultRounds) {
				differs++
				break
			}
		}
	}
	// Tiny domains may collide by chance; the bulk must not.
	assert.Greater(t, differs, total*9/10)
}

func TestPermute_NotIdentity(t *testing.T) {
	const n = 64
	moved := 0
	for x := range uint32(n) {
		if Permute(x, n, 0xDEADBEEF, DefaultRounds) != x {
			moved++
		}
	}
	assert.Greater(t, moved, n/2)
}

func TestPermute_Deterministic(t *testing.T) {
	for x := range uint32(37) {
		assert.Equal(t, Permute(x, 37, 42, DefaultRounds), Permute(x, 37, 42, DefaultRounds))
	}
}
