package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

func Filter[L ~[]X, X any](l L, keep func(X) bool) []X {
	var r []X
	for _, x := range l {
		if keep(x) {
			r = append(r, x)
		}
	}
	return r
}

func Exists[L ~[]X, X any](l L, f func(X) bool) bool {
	for _, x := range l {
		if f(x) {
			return true
		}
	}
	return false
}
