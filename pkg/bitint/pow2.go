/*
Package bitint provides the small set of bit manipulation helpers the
spectrum pipeline needs for sizing and planning radix-2 transforms.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) or O(log n) with no branches on data
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Verify an analysis frame length before building a plan
	if !bitint.IsPowerOfTwo(frameLength) { ... }

	// Number of butterfly stages for a 1024 point transform
	stages := bitint.Log2(1024) // 10

	// Bit-reversed position of index 3 in an 8 point transform
	pos := bitint.ReverseBits(3, 3) // 6

----------------------------------------------------------------------

NextPowerOfTwo relies on (size-1) so that exact powers of two are
preserved: for 8, bits.Len(7) = 3 and 1<<3 = 8. Without the subtraction
bits.Len(8) = 4 and the input would be doubled to 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
//	-8     false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two, i.e. the number of
// radix-2 stages needed for an n point transform. For values that are not
// powers of two it returns the floor of the logarithm; for n <= 0 it
// returns 0.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// ReverseBits reverses the lowest width bits of i. Bits above width are
// discarded. A width of 0 always yields 0.
func ReverseBits(i, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(i)) >> (bits.UintSize - width))
}
