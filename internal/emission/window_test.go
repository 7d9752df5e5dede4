package emission

import (
	"errors"
	"math/big"
	"reflect"
	"testing"
)

func TestSplitWindows(t *testing.T) {
	got, err := SplitWindows(100, 106, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{
		{From: 100, To: 102},
		{From: 102, To: 104},
		{From: 104, To: 106},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitWindowsShortTail(t *testing.T) {
	got, err := SplitWindows(5, 12, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Window{{From: 5, To: 10}, {From: 10, To: 12}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch: %+v != %+v", got, want)
	}
}

func TestSplitWindowsEmpty(t *testing.T) {
	got, err := SplitWindows(7, 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no windows, got %+v", got)
	}
}

func TestSplitWindowsInvalid(t *testing.T) {
	if _, err := SplitWindows(10, 9, 1); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, err := SplitWindows(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero window size")
	}
}

func TestProjectSumsToRangeEmission(t *testing.T) {
	s, err := NewSchedule(5000, 10000, big.NewInt(3))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	proj, err := s.Project(2500, 90000, 7000)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	sum := new(big.Int)
	for _, w := range proj {
		sum.Add(sum, w.Emission)
	}
	if sum.Cmp(big.NewInt(445000*3)) != 0 {
		t.Fatalf("projection sum mismatch: %s", sum)
	}
	if proj[0].Multiplier != 4500*9 {
		t.Fatalf("first window multiplier mismatch: %d", proj[0].Multiplier)
	}
}
