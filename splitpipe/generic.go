package splitpipe

// splitGeneric slices data into contiguous ranges of exactly ceiling bytes,
// the last range holding the remainder. No container is rebuilt; the ranges
// alias the source buffer, which the engine never mutates. Concatenating
// the ranges in order reproduces the source byte-for-byte.
func splitGeneric(data []byte, ceiling int64) [][]byte {
	n := (int64(len(data)) + ceiling - 1) / ceiling
	parts := make([][]byte, 0, n)
	for off := int64(0); off < int64(len(data)); off += ceiling {
		end := off + ceiling
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		parts = append(parts, data[off:end])
	}
	return parts
}
