package emission

import (
	"errors"
	"fmt"
	"math/big"
)

// SegmentCount is the number of decaying segments before the flat tail.
const SegmentCount = 8

// segmentWeights are the per-second multipliers of each decaying segment.
var segmentWeights = [SegmentCount]uint64{9, 8, 7, 6, 5, 4, 3, 2}

// tailWeight applies from FinishBonusAt onwards.
const tailWeight uint64 = 1

// ErrInvalidRange is returned when an interval ends before it starts.
var ErrInvalidRange = errors.New("invalid range")

// Schedule describes when and how fast the reward token is emitted.
type Schedule struct {
	StartTime         uint64
	SegmentLength     uint64
	EmissionPerSecond *big.Int
}

// NewSchedule validates the parameters and returns a Schedule.
func NewSchedule(startTime, segmentLength uint64, emissionPerSecond *big.Int) (Schedule, error) {
	if segmentLength == 0 {
		return Schedule{}, fmt.Errorf("segment length must be greater than zero")
	}
	if emissionPerSecond == nil || emissionPerSecond.Sign() < 0 {
		return Schedule{}, fmt.Errorf("emission per second must be non-negative")
	}
	return Schedule{
		StartTime:         startTime,
		SegmentLength:     segmentLength,
		EmissionPerSecond: new(big.Int).Set(emissionPerSecond),
	}, nil
}

// ChangeMultiplierAt returns the end of decaying segment i (0-based).
func (s Schedule) ChangeMultiplierAt(i int) uint64 {
	return s.StartTime + uint64(i+1)*s.SegmentLength
}

// FinishBonusAt is the first second of the flat tail.
func (s Schedule) FinishBonusAt() uint64 {
	return s.StartTime + SegmentCount*s.SegmentLength
}

// WeightAt returns the per-second multiplier in effect at ts.
func (s Schedule) WeightAt(ts uint64) uint64 {
	if ts < s.StartTime {
		return 0
	}
	if ts >= s.FinishBonusAt() {
		return tailWeight
	}
	return segmentWeights[(ts-s.StartTime)/s.SegmentLength]
}

// Multiplier integrates the step function over [max(from, StartTime), to).
func (s Schedule) Multiplier(from, to uint64) (uint64, error) {
	if from > to {
		return 0, fmt.Errorf("%w: from %d > to %d", ErrInvalidRange, from, to)
	}
	if to <= s.StartTime {
		return 0, nil
	}
	if from < s.StartTime {
		from = s.StartTime
	}

	var total uint64
	segStart := s.StartTime
	for i := 0; i < SegmentCount && from < to; i++ {
		segEnd := segStart + s.SegmentLength
		total += overlap(from, to, segStart, segEnd) * segmentWeights[i]
		segStart = segEnd
	}
	total += overlap(from, to, s.FinishBonusAt(), to) * tailWeight
	return total, nil
}

// Emission returns the total reward units for [from, to) before pool weighting.
func (s Schedule) Emission(from, to uint64) (*big.Int, error) {
	factor, err := s.Multiplier(from, to)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).SetUint64(factor)
	return out.Mul(out, s.EmissionPerSecond), nil
}

func overlap(from, to, segStart, segEnd uint64) uint64 {
	lo := from
	if segStart > lo {
		lo = segStart
	}
	hi := to
	if segEnd < hi {
		hi = segEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
