// SPDX-License-Identifier: MIT
package analysis

// ChunkSize returns the number of contiguous bins per bar when bins
// magnitudes are split into barCount bars. It is never less than 1.
func ChunkSize(bins, barCount int) int {
	if barCount <= 0 {
		return 1
	}
	return max(bins/barCount, 1)
}

// Bucketize max-pools mags into at most barCount bars of chunkSize bins and
// appends them to dst[:0]. A bar whose first bin lies past the end of mags
// is omitted, so the result can be shorter than barCount; the last bar may
// cover fewer than chunkSize bins. With a dst capacity of barCount it does
// not allocate.
func Bucketize(dst, mags []float64, barCount, chunkSize int) []float64 {
	dst = dst[:0]
	if chunkSize < 1 {
		chunkSize = 1
	}

	for i := range barCount {
		start := i * chunkSize
		if start >= len(mags) {
			break
		}
		end := min(start+chunkSize, len(mags))

		peak := mags[start]
		for _, m := range mags[start+1 : end] {
			if m > peak {
				peak = m
			}
		}
		dst = append(dst, peak)
	}

	return dst
}
