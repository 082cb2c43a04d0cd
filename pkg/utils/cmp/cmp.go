package cmp

// true when a and b have the same length and the same elements in the same order.
func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// true when a and b have the same contents, ignoring order.
//
// Repeated elements are counted: {x, x, y} does not match {x, y, y}.
func SliceContentEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[T]int{}
	for _, v := range a {
		counts[v] += 1
	}
	for _, v := range b {
		counts[v] -= 1
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// SliceContentEqWith is SliceContentEq for types without comparability.
//
// equiv should be an equivalence relation.
func SliceContentEqWith[S, T any](a []S, b []T, equiv func(S, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
aloop:
	for _, va := range a {
		for i, vb := range b {
			if matched[i] {
				continue
			}
			if equiv(va, vb) {
				matched[i] = true
				continue aloop
			}
		}
		return false
	}
	return true
}

func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va != vb {
			return false
		}
	}
	return true
}
