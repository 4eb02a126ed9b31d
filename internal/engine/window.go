package engine

// window is a fixed-size rolling buffer of momentum values. Nulls are kept
// positionally so the count predicates can distinguish a short or gappy
// window from a full one.
type window struct {
	size int
	vals []*float64 // oldest first
}

func newWindow(size int) *window {
	return &window{size: size}
}

// push appends a value, evicting the oldest once full.
func (w *window) push(v *float64) {
	w.vals = append(w.vals, v)
	if len(w.vals) > w.size {
		w.vals = w.vals[1:]
	}
}

func (w *window) reset() {
	w.vals = nil
}

// full reports whether the buffer holds size values, all non-null.
func (w *window) full() bool {
	if len(w.vals) < w.size {
		return false
	}
	for _, v := range w.vals {
		if v == nil {
			return false
		}
	}
	return true
}

// countBelow counts non-null values strictly below x.
func (w *window) countBelow(x float64) int {
	n := 0
	for _, v := range w.vals {
		if v != nil && *v < x {
			n++
		}
	}
	return n
}

// newestRunBelow reports whether the newest n values are all present and
// strictly below x. A window shorter than n never satisfies it.
func (w *window) newestRunBelow(n int, x float64) bool {
	if len(w.vals) < n {
		return false
	}
	for _, v := range w.vals[len(w.vals)-n:] {
		if v == nil || *v >= x {
			return false
		}
	}
	return true
}
