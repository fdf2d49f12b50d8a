package webhook

// Chunk splits items into consecutive chunks of at most size elements.
// The last chunk may be shorter; empty input yields no chunks.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end:end])
	}
	return out
}
