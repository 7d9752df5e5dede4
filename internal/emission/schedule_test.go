package emission

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchedule(t *testing.T) Schedule {
	t.Helper()
	s, err := NewSchedule(5000, 10000, big.NewInt(1))
	require.NoError(t, err)
	return s
}

func TestScheduleBoundaries(t *testing.T) {
	s := testSchedule(t)
	require.Equal(t, uint64(15000), s.ChangeMultiplierAt(0))
	require.Equal(t, uint64(85000), s.ChangeMultiplierAt(7))
	require.Equal(t, uint64(85000), s.FinishBonusAt())
}

func TestMultiplier(t *testing.T) {
	s := testSchedule(t)

	cases := []struct {
		from, to uint64
		want     uint64
	}{
		{2500, 3200, 0},
		{2500, 5000, 0},
		{2500, 5001, 9},
		{5000, 5001, 9},
		{6000, 14000, 72000},
		{14000, 15001, 9008},
		{16000, 24000, 64000},
		{24000, 25001, 8007},
		{26000, 34000, 56000},
		{34000, 35001, 7006},
		{36000, 44000, 48000},
		{44000, 45001, 6005},
		{46000, 54000, 40000},
		{54000, 55001, 5004},
		{56000, 64000, 32000},
		{64000, 65001, 4003},
		{66000, 74000, 24000},
		{74000, 75001, 3002},
		{76000, 84000, 16000},
		{84999, 85000, 2},
		{85000, 85001, 1},
		{2142456, 2152456, 10000},
		{80000, 90000, 15000},
		{2500, 90000, 445000},
		{17210, 63456, 276144},
		{7000, 7000, 0},
	}

	for _, tc := range cases {
		got, err := s.Multiplier(tc.from, tc.to)
		require.NoError(t, err)
		require.Equalf(t, tc.want, got, "multiplier(%d, %d)", tc.from, tc.to)
	}
}

func TestMultiplierInvalidRange(t *testing.T) {
	s := testSchedule(t)
	_, err := s.Multiplier(10, 9)
	require.True(t, errors.Is(err, ErrInvalidRange))
}

func TestMultiplierAdditive(t *testing.T) {
	s := testSchedule(t)
	points := []uint64{0, 4999, 5000, 5001, 14999, 15000, 33333, 84999, 85000, 85001, 120000}

	for _, a := range points {
		for _, c := range points {
			for _, b := range points {
				if a > c || c > b {
					continue
				}
				ab, err := s.Multiplier(a, b)
				require.NoError(t, err)
				ac, err := s.Multiplier(a, c)
				require.NoError(t, err)
				cb, err := s.Multiplier(c, b)
				require.NoError(t, err)
				require.Equalf(t, ab, ac+cb, "a=%d c=%d b=%d", a, c, b)
			}
		}
	}
}

func TestMultiplierMatchesWeightSum(t *testing.T) {
	s, err := NewSchedule(100, 7, big.NewInt(1))
	require.NoError(t, err)

	var want uint64
	for ts := uint64(90); ts < 200; ts++ {
		want += s.WeightAt(ts)
	}
	got, err := s.Multiplier(90, 200)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestEmission(t *testing.T) {
	s, err := NewSchedule(5000, 10000, big.NewInt(1_000_000))
	require.NoError(t, err)

	got, err := s.Emission(5000, 5010)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(90_000_000), got)
}

func TestNewScheduleValidation(t *testing.T) {
	_, err := NewSchedule(0, 0, big.NewInt(1))
	require.Error(t, err)

	_, err = NewSchedule(0, 10, big.NewInt(-1))
	require.Error(t, err)

	_, err = NewSchedule(0, 10, nil)
	require.Error(t, err)
}
