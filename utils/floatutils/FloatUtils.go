// Package floatutils provides utilities for working with floats
package floatutils

// MaxSlice gets the maximum value and indices of the maximum values in
// a slice of float64. Indices are in increasing order. MaxSlice panics
// if values is empty.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i := 1; i < len(values); i++ {
		value := values[i]
		if value > max {
			max = value
			indices = []int{i}
		} else if value == max {
			indices = append(indices, i)
		}
	}
	return
}
