package slice

// Map applies f to every element of list. A nil f yields an empty slice.
func Map[T, R any](list []T, f func(t T) R) []R {
	if f == nil {
		return make([]R, 0)
	}

	output := make([]R, 0, len(list))

	for idx := range list {
		output = append(output, f(list[idx]))
	}

	return output
}

// Filter keeps the elements accepted by filterFn. A nil filterFn keeps everything.
func Filter[T any](arr []T, filterFn func(v T) bool) []T {
	output := make([]T, 0, len(arr))
	for _, v := range arr {
		if filterFn == nil || filterFn(v) {
			output = append(output, v)
		}
	}

	return output
}

// Find returns the first element matching f.
func Find[T any](list []T, f func(t T) bool) (T, bool) {
	var found T
	for idx := range list {
		if ok := f(list[idx]); ok {
			return list[idx], true
		}
	}

	return found, false
}

// Count returns how many elements match f.
func Count[T any](list []T, f func(t T) bool) int {
	var n int
	for idx := range list {
		if f(list[idx]) {
			n++
		}
	}

	return n
}
