//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Root is where the per-PID readers look. Collectors carry their own root.
const Root = "/proc"

func pidPath(root string, pid int, name ...string) string {
	return filepath.Join(append([]string{root, strconv.Itoa(pid)}, name...)...)
}

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go library,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// TicksToMicros converts clock ticks to microseconds.
func TicksToMicros(ticks uint64, clkTck int) int64 {
	return int64(ticks * 1_000_000 / uint64(clkTck))
}

// Exists reports whether a given PID currently exists in /proc.
// It simply checks if /proc/<pid> is a valid directory.
func Exists(pid int) bool { return exists(Root, pid) }

func exists(root string, pid int) bool {
	_, err := os.Stat(pidPath(root, pid))
	return err == nil
}

//
// Per-PID readers
//

// ReadProcStat parses /proc/<pid>/stat and extracts:
// - utime: user CPU jiffies
// - stime: system CPU jiffies
//
// Caveats:
//   - Field order is fixed, but comm (2nd field) is in parens and may contain
//     spaces. We strip everything before the closing ") " safely.
//   - Returns uint64 counters (monotonic increasing).
func ReadProcStat(pid int) (utime, stime uint64, err error) { return readProcStat(Root, pid) }

func readProcStat(root string, pid int) (utime, stime uint64, err error) {
	f, err := os.Open(pidPath(root, pid, "stat"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return parseStat(f)
}

func parseStat(r io.Reader) (utime, stime uint64, err error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return 0, 0, ErrNoStat
	}
	line := sc.Text()

	// Everything before ") " is pid + comm; after that are numeric fields.
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, 0, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])

	// utime (14th overall) => fields[11]
	// stime (15th overall) => fields[12]
	if len(fields) < 13 {
		return 0, 0, ErrShortStat
	}
	if utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("utime: %w", err)
	}
	if stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("stime: %w", err)
	}
	return utime, stime, nil
}

// ReadComm returns the command name of pid from /proc/<pid>/comm.
func ReadComm(pid int) (string, error) { return readComm(Root, pid) }

func readComm(root string, pid int) (string, error) {
	b, err := os.ReadFile(pidPath(root, pid, "comm"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// FreqTime is the time a task spent at one CPU frequency.
type FreqTime struct {
	FreqKHz int64
	Ticks   uint64
}

// ReadTimeInState reads /proc/<pid>/time_in_state. The file is only present
// on kernels built with per-task cpufreq accounting (most Android kernels).
// Frequencies listed under several policies are summed; the result is sorted
// by frequency.
func ReadTimeInState(pid int) ([]FreqTime, error) { return readTimeInState(Root, pid) }

func readTimeInState(root string, pid int) ([]FreqTime, error) {
	f, err := os.Open(pidPath(root, pid, "time_in_state"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoTimeInState
		}
		return nil, err
	}
	defer f.Close()
	return parseTimeInState(f)
}

// parseTimeInState accepts
//
//	cpu0
//	300000 12
//	576000 3
//	cpu4
//	710400 5
func parseTimeInState(r io.Reader) ([]FreqTime, error) {
	byFreq := map[int64]uint64{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || strings.HasPrefix(fs[0], "cpu") {
			continue
		}
		if len(fs) != 2 {
			return nil, fmt.Errorf("time_in_state: %q: %w", sc.Text(), ErrMalformed)
		}
		freq, err := strconv.ParseInt(fs[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("time_in_state: freq: %w", err)
		}
		ticks, err := strconv.ParseUint(fs[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("time_in_state: ticks: %w", err)
		}
		byFreq[freq] += ticks
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]FreqTime, 0, len(byFreq))
	for freq, ticks := range byFreq {
		out = append(out, FreqTime{FreqKHz: freq, Ticks: ticks})
	}
	slices.SortFunc(out, func(a, b FreqTime) int {
		switch {
		case a.FreqKHz < b.FreqKHz:
			return -1
		case a.FreqKHz > b.FreqKHz:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

//
// Process tree
//

// ReadProcChildren returns the direct child PIDs of a process by reading
// /proc/<pid>/task/*/children files. Each children file lists space-separated
// PIDs for that thread’s children.
//
// Notes:
//   - Kernel 3.5+ exposes this interface.
//   - We deduplicate across threads by using a set.
//   - If no children are found, returns error.
func ReadProcChildren(pid int) ([]int, error) {
	glob := fmt.Sprintf("/proc/%d/task/*/children", pid)
	paths, _ := filepath.Glob(glob)
	set := map[int]struct{}{}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		for _, s := range strings.Fields(string(b)) {
			if id, err := strconv.Atoi(s); err == nil {
				set[id] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrNoChildren
	}
	slices.Sort(out)
	return out, nil
}

// Expand returns pids followed by all of their descendants, each pid once.
func Expand(pids []int) []int {
	seen := make(map[int]struct{}, len(pids))
	out := make([]int, 0, len(pids))
	queue := append([]int(nil), pids...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
		if kids, err := ReadProcChildren(pid); err == nil {
			queue = append(queue, kids...)
		}
	}
	return out
}
