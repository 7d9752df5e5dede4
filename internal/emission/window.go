package emission

import (
	"fmt"
	"math/big"
)

// Window represents a half-open time range [From, To).
type Window struct {
	From uint64
	To   uint64
}

// SplitWindows splits [from, to) into windows of at most size seconds.
func SplitWindows(from, to, size uint64) ([]Window, error) {
	if size == 0 {
		return nil, fmt.Errorf("window size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("%w: to %d must be >= from %d", ErrInvalidRange, to, from)
	}

	windows := make([]Window, 0)
	for start := from; start < to; {
		end := to
		if to-start > size {
			end = start + size
		}
		windows = append(windows, Window{From: start, To: end})
		start = end
	}
	return windows, nil
}

// WindowEmission is the projected emission of one window.
type WindowEmission struct {
	Window     Window
	Multiplier uint64
	Emission   *big.Int
}

// Project computes the schedule's emission for each window of [from, to).
func (s Schedule) Project(from, to, size uint64) ([]WindowEmission, error) {
	windows, err := SplitWindows(from, to, size)
	if err != nil {
		return nil, err
	}
	out := make([]WindowEmission, 0, len(windows))
	for _, w := range windows {
		factor, err := s.Multiplier(w.From, w.To)
		if err != nil {
			return nil, err
		}
		emission := new(big.Int).SetUint64(factor)
		emission.Mul(emission, s.EmissionPerSecond)
		out = append(out, WindowEmission{Window: w, Multiplier: factor, Emission: emission})
	}
	return out, nil
}
