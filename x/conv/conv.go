// Package conv appends integer text to byte slices without fmt or strconv,
// keeping MCU builds small.
package conv

// AppendUint appends the base-10 representation of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var buf [20]byte
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return append(dst, buf[i:]...)
}

// AppendInt appends the base-10 representation of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendPadded appends n in base 10, left-padded with zeros to width.
func AppendPadded(dst []byte, n uint64, width int) []byte {
	var tmp [20]byte
	digits := AppendUint(tmp[:0], n)
	for k := len(digits); k < width; k++ {
		dst = append(dst, '0')
	}
	return append(dst, digits...)
}

// Itoa is a convenience for callers that need a string.
func Itoa(n int) string { return string(AppendInt(nil, int64(n))) }
