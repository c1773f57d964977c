// Package firmware provides the co-processor images: the firmware proper and
// the CLM (country locale matrix) calibration blob, uploaded in that order.
package firmware

// Synthetic returns a deterministic stand-in image of n bytes. Host builds
// use it in place of the vendor blobs.
func Synthetic(n int, seed byte) []byte {
	b := make([]byte, n)
	x := uint32(seed) | 0x9E370000
	for i := range b {
		// xorshift32
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		b[i] = byte(x)
	}
	return b
}
