package frame

import (
	"sort"

	"github.com/csdemo/csdemo/errs"
)

// maxResyncProbes bounds try_find_beginning's one-byte-at-a-time search so
// a thoroughly corrupt window fails fast instead of scanning to EOF.
const maxResyncProbes = 200_000

// TryFindBeginning performs resynchronization: starting at byte offset
// start, it advances one byte at a time attempting to decode a frame and
// three more frames chained after it, accepting only when the four frames'
// ticks are strictly consecutive (t, t+1, t+2, t+3). This is what gives
// split_into_chunks near-deterministic, tick-disjoint chunk boundaries for
// parallel second-pass decoding (§4.2, §5).
//
// start == 0 or start == HeaderSize is special-cased to return HeaderSize
// directly, matching the upstream engine's treatment of the very first
// shard (there is nothing to resync from; frames simply begin there).
func TryFindBeginning(buf []byte, start, end int64) (int64, error) {
	if start == 0 || start == HeaderSize {
		return HeaderSize, nil
	}
	ptr := start
	probes := 0
	for {
		probes++
		if ptr >= int64(len(buf)) || probes > maxResyncProbes {
			return 0, errs.ErrDemoEndsEarly
		}
		ptr++
		f0, err := ReadFrame(buf, ptr)
		if err != nil {
			continue
		}
		f1, err := ReadFrame(buf, f0.PayloadEnd())
		if err != nil {
			continue
		}
		f2, err := ReadFrame(buf, f1.PayloadEnd())
		if err != nil {
			continue
		}
		f3, err := ReadFrame(buf, f2.PayloadEnd())
		if err != nil {
			continue
		}
		if f0.Tick+1 == f1.Tick && f1.Tick+1 == f2.Tick && f2.Tick+1 == f3.Tick {
			if ptr > end {
				return 0, errs.ErrDemoEndsEarly
			}
			return f0.StartsAt, nil
		}
	}
}

// Window is a candidate shard byte range discovered by SplitIntoChunks.
type Window struct {
	Start int64
	End   int64
}

// SplitIntoChunks divides [0, size) into n candidate byte windows, resyncs
// each one to a confirmed frame boundary, and deduplicates the results into
// a tick-disjoint set of shard windows (§4.2, §5). The first window always
// begins at HeaderSize; later windows begin at whatever frame boundary
// TryFindBeginning discovers inside that stride.
func SplitIntoChunks(buf []byte, n int) []Window {
	if n < 1 {
		n = 1
	}
	size := int64(len(buf))
	stride := size / int64(n)
	if stride == 0 {
		return []Window{{Start: HeaderSize, End: size}}
	}
	boundarySet := map[int64]struct{}{}
	for i := 0; i < n; i++ {
		strideStart := int64(i) * stride
		strideEnd := strideStart + stride
		if i == n-1 {
			strideEnd = size
		}
		if pos, err := TryFindBeginning(buf, strideStart, strideEnd); err == nil {
			boundarySet[pos] = struct{}{}
		}
	}
	boundaries := make([]int64, 0, len(boundarySet))
	for pos := range boundarySet {
		boundaries = append(boundaries, pos)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })

	windows := make([]Window, 0, len(boundaries))
	last := int64(HeaderSize)
	for _, pos := range boundaries {
		if pos == HeaderSize {
			continue
		}
		windows = append(windows, Window{Start: last, End: pos})
		last = pos
	}
	windows = append(windows, Window{Start: last, End: size})
	return windows
}
