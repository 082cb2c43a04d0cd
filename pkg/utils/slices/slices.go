package slices

// apply mapper for each element in sli, and return slice of the results.
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	mapped := make([]R, len(sli))
	for i, v := range sli {
		mapped[i] = mapper(v)
	}
	return mapped
}

// pick up elements matching predicator.
//
// The result shares no memory with the input.
func Filter[T any](sli []T, predicator func(T) bool) []T {
	filtered := []T{}
	for _, v := range sli {
		if predicator(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// find the first element matching predicator.
//
// # Returns
//
// - T: the found element (zero value when not found)
//
// - bool: true when found
func First[T any](sli []T, predicator func(T) bool) (T, bool) {
	for _, v := range sli {
		if predicator(v) {
			return v, true
		}
	}
	return *new(T), false
}

// build map from slice. Keys are given by getkey.
//
// When keys collide, the later element wins.
func ToMap[T any, K comparable](sli []T, getkey func(v T) K) map[K]T {
	m := map[K]T{}
	for _, v := range sli {
		m[getkey(v)] = v
	}
	return m
}

// group elements of sli by the key given by getkey, keeping input order
// inside each group.
func GroupBy[T any, K comparable](sli []T, getkey func(v T) K) map[K][]T {
	m := map[K][]T{}
	for _, v := range sli {
		k := getkey(v)
		m[k] = append(m[k], v)
	}
	return m
}

func KeysOf[T any, K comparable](m map[K]T) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func Concat[T any](sli ...[]T) []T {
	length := 0
	for _, s := range sli {
		length += len(s)
	}
	con := make([]T, 0, length)
	for _, s := range sli {
		con = append(con, s...)
	}
	return con
}

// true when sli contains at least one element matching predicator.
func Any[T any](sli []T, predicator func(T) bool) bool {
	_, ok := First(sli, predicator)
	return ok
}
