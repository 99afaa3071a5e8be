package gas

import (
	"math"
	"math/big"
)

// Window is a fixed-capacity FIFO of observed gas prices. Single writer
// (the scan/execute path); oldest sample is evicted on overflow.
type Window struct {
	samples []*big.Int
	next    int
	full    bool
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 100
	}
	return &Window{samples: make([]*big.Int, capacity)}
}

// Add records a sample, evicting the oldest when the window is full
func (w *Window) Add(price *big.Int) {
	w.samples[w.next] = new(big.Int).Set(price)
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of samples currently held
func (w *Window) Len() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// MeanStdDev computes mean and population standard deviation over the window.
// Gas prices fit comfortably in float64 for stats purposes.
func (w *Window) MeanStdDev() (mean, stddev float64) {
	n := w.Len()
	if n == 0 {
		return 0, 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		f, _ := new(big.Float).SetInt(w.samples[i]).Float64()
		sum += f
	}
	mean = sum / float64(n)

	variance := 0.0
	for i := 0; i < n; i++ {
		f, _ := new(big.Float).SetInt(w.samples[i]).Float64()
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(n)

	return mean, math.Sqrt(variance)
}
