// Package segment manages the on-disk writer segment files that make up
// a journal's append-only log, following the naming and discovery style
// of the teacher's segment package but keyed by queue name and timestamp
// rather than a zero-padded numeric offset.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TransientSuffix marks a rewrite-in-progress file (spec.md §2, §6.1).
// Any name containing it is ignored by discovery and safe to delete on
// recovery.
const TransientSuffix = "~~"

// nameRE matches a writer segment filename for queue name Q:
// "Q.<digits>" (spec.md §4.5).
func nameRE(queueName string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(queueName) + `\.(\d+)$`)
}

// FormatName builds a writer segment filename from a queue name and a
// base timestamp (milliseconds since epoch, per spec.md §2).
func FormatName(queueName string, baseTimestamp int64) string {
	return fmt.Sprintf("%s.%d", queueName, baseTimestamp)
}

// ParseName extracts the base timestamp from a writer segment filename,
// or false if filename doesn't match "<queueName>.<digits>".
func ParseName(queueName, filename string) (int64, bool) {
	m := nameRE(queueName).FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// Info describes a discovered writer segment file.
type Info struct {
	BaseTimestamp int64
	Path          string
	Size          int64
}

// Discover finds every writer segment for queueName in dir, sorted by
// base timestamp ascending. Transient "~~" files and files that don't
// match the naming convention are skipped, never an error (spec.md §4.5).
func Discover(dir, queueName string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("segment: reading directory %s: %w", dir, err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), TransientSuffix) {
			continue
		}
		ts, ok := ParseName(queueName, e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			BaseTimestamp: ts,
			Path:          filepath.Join(dir, e.Name()),
			Size:          info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BaseTimestamp < out[j].BaseTimestamp })
	return out, nil
}

// QueueNamesFromDir returns the set of queue names present in dir,
// identified by the prefix before the first '.' of each filename,
// ignoring transient "~~" files (spec.md §4.5).
func QueueNamesFromDir(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("segment: reading directory %s: %w", dir, err)
	}

	names := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), TransientSuffix) {
			continue
		}
		if idx := strings.IndexByte(e.Name(), '.'); idx > 0 {
			names[e.Name()[:idx]] = struct{}{}
		}
	}
	return names, nil
}

// ReaderStatePath builds the path to queueName's reader state file for a
// named reader (spec.md §6.1: "D/Q.read.<name>").
func ReaderStatePath(dir, queueName, readerName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.read.%s", queueName, readerName))
}

// readerNameRE matches "<queueName>.read.<name>" where name has no '.'
// or '~' characters (spec.md §6.1: `[^.~]+`).
func readerNameRE(queueName string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(queueName) + `\.read\.([^.~]+)$`)
}

// DiscoverReaders returns the reader names with a state file for
// queueName in dir.
func DiscoverReaders(dir, queueName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("segment: reading directory %s: %w", dir, err)
	}

	re := readerNameRE(queueName)
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), TransientSuffix) {
			continue
		}
		if m := re.FindStringSubmatch(e.Name()); m != nil {
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names, nil
}
