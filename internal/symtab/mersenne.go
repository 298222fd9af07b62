// Package symtab interns strings process-wide and derives deterministic
// 64-bit function keys from a module identifier, mirroring byfl's
// MersenneTwister.{h,cpp} and FunctionKeyGen.{h,cpp}.
package symtab

const (
	nn       = 312
	mm       = 156
	matrixA  = 0xB5026F5AA96619E9
	upperMsk = 0xFFFFFFFF80000000
	lowerMsk = 0x7FFFFFFF
)

// MersenneTwister is a 64-bit MT19937-64 generator, ported from the
// reference implementation byfl embeds (mt19937-64.c by Takuji Nishimura
// and Makoto Matsumoto).
type MersenneTwister struct {
	state [nn]uint64
	index int
}

// NewMersenneTwister seeds a generator from a single 64-bit value.
func NewMersenneTwister(seed uint64) *MersenneTwister {
	mt := &MersenneTwister{}
	mt.state[0] = seed
	for i := 1; i < nn; i++ {
		mt.state[i] = 6364136223846793005*(mt.state[i-1]^(mt.state[i-1]>>62)) + uint64(i)
	}
	mt.index = nn
	return mt
}

var mag01 = [2]uint64{0, matrixA}

// Next returns the next 64-bit value in the sequence, regenerating the
// internal state array every nn draws.
func (mt *MersenneTwister) Next() uint64 {
	if mt.index >= nn {
		mt.generate()
	}
	x := mt.state[mt.index]
	mt.index++

	x ^= (x >> 29) & 0x5555555555555555
	x ^= (x << 17) & 0x71D67FFFEDA60000
	x ^= (x << 37) & 0xFFF7EEE000000000
	x ^= x >> 43
	return x
}

func (mt *MersenneTwister) generate() {
	var x uint64
	for i := 0; i < nn-mm; i++ {
		x = (mt.state[i] & upperMsk) | (mt.state[i+1] & lowerMsk)
		mt.state[i] = mt.state[i+mm] ^ (x >> 1) ^ mag01[x&1]
	}
	for i := nn - mm; i < nn-1; i++ {
		x = (mt.state[i] & upperMsk) | (mt.state[i+1] & lowerMsk)
		mt.state[i] = mt.state[i+(mm-nn)] ^ (x >> 1) ^ mag01[x&1]
	}
	x = (mt.state[nn-1] & upperMsk) | (mt.state[0] & lowerMsk)
	mt.state[nn-1] = mt.state[mm-1] ^ (x >> 1) ^ mag01[x&1]
	mt.index = 0
}
