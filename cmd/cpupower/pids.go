package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// maxRange caps A..B expansions so a typo does not allocate millions of pids.
const maxRange = 1 << 16

// parsePIDs accepts single pids and inclusive A..B ranges. The result is
// sorted and free of duplicates.
func parsePIDs(args []string) ([]int, error) {
	var out []int
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(a, "..")
		if !isRange {
			pid, err := parsePID(a)
			if err != nil {
				return nil, err
			}
			out = append(out, pid)
			continue
		}
		from, err := parsePID(lo)
		if err != nil {
			return nil, err
		}
		to, err := parsePID(hi)
		if err != nil {
			return nil, err
		}
		if to < from {
			return nil, fmt.Errorf("pid range %q: end before start", a)
		}
		if to-from >= maxRange {
			return nil, fmt.Errorf("pid range %q: more than %d pids", a, maxRange)
		}
		for pid := from; pid <= to; pid++ {
			out = append(out, pid)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return pid, nil
}
