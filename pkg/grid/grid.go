package grid

// GetGridCoords converts a row-major cell index into column and row.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index converts a column and row into a row-major cell index.
func Index(x, y, cols int) int {
	return y*cols + x
}

// Wrap folds v into [0, size).
func Wrap(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}
