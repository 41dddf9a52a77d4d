package output

import "sort"

// ShardOutput is one second-pass shard's contribution, tagged by its
// starting byte offset for ordering (§4.11, §4.12).
type ShardOutput struct {
	StartOffset int64
	Columns     map[string]*PropColumn
	Events      []GameEventRow
	Chat        []ChatMessage
	ItemDrops   []ItemDropRow
	Convars     map[string]string
}

// GameEventRow is one emitted game event, already enriched (§6).
type GameEventRow struct {
	Name   string
	Tick   int32
	Fields map[string]Variant
}

// ChatMessage is one decoded chat line.
type ChatMessage struct {
	Tick   int32
	Sender string
	Text   string
}

// ItemDropRow is one economy/item-drop record (§11).
type ItemDropRow struct {
	Tick        int32
	SteamID     uint64
	EntityID    int32
	ItemName    string
	InInventory bool
}

// Combined is the merged result of every shard, before the tick filter.
type Combined struct {
	Columns   map[string]*PropColumn
	Events    []GameEventRow
	Chat      []ChatMessage
	ItemDrops []ItemDropRow
	Convars   map[string]string
}

// Combine merges shard outputs in ascending StartOffset order (§4.12):
// columns are concatenated and null-padded to equal length; events/chat/
// item drops are concatenated; convars from later shards overwrite
// earlier ones (later snapshots are more current).
func Combine(shards []ShardOutput) Combined {
	sorted := make([]ShardOutput, len(shards))
	copy(sorted, shards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartOffset < sorted[j].StartOffset })

	out := Combined{
		Columns: make(map[string]*PropColumn),
		Convars: make(map[string]string),
	}
	rowsSoFar := 0
	for _, s := range sorted {
		for name, col := range s.Columns {
			existing, ok := out.Columns[name]
			if !ok {
				existing = NewPropColumn(name)
				existing.PadTo(rowsSoFar)
				out.Columns[name] = existing
			}
			existing.Extend(col)
		}
		// every column this shard didn't touch must still grow to keep all
		// columns the same length (§4.12 "null-filling shorter columns").
		rowsSoFar += shardRowCount(s)
		for _, col := range out.Columns {
			col.PadTo(rowsSoFar)
		}
		out.Events = append(out.Events, s.Events...)
		out.Chat = append(out.Chat, s.Chat...)
		out.ItemDrops = append(out.ItemDrops, s.ItemDrops...)
		for k, v := range s.Convars {
			out.Convars[k] = v
		}
	}
	return out
}

func shardRowCount(s ShardOutput) int {
	max := 0
	for _, col := range s.Columns {
		if col.Len() > max {
			max = col.Len()
		}
	}
	return max
}

// FilterTicks slices every column in c down to the rows whose "tick"
// column value is in wantedTicks (§4.12). If wantedTicks is empty, c is
// returned unchanged.
func FilterTicks(c Combined, wantedTicks map[int32]bool) Combined {
	if len(wantedTicks) == 0 {
		return c
	}
	tickCol, ok := c.Columns["tick"]
	if !ok {
		return c
	}
	var indices []int
	for i := 0; i < tickCol.Len(); i++ {
		if tickCol.Present[i] && wantedTicks[tickCol.Values[i].I32] {
			indices = append(indices, i)
		}
	}
	filtered := Combined{Columns: make(map[string]*PropColumn), Convars: c.Convars}
	for name, col := range c.Columns {
		filtered.Columns[name] = col.SliceIndices(indices)
	}
	filtered.Events = c.Events
	filtered.Chat = c.Chat
	filtered.ItemDrops = c.ItemDrops
	return filtered
}

// RemoveInternalProps drops columns that exist only to feed cross-tick
// derivations (e.g. velocity) and were never requested by the caller
// (§4.12 "Removes props that were only added as internal temporaries").
func RemoveInternalProps(c Combined, internalNames map[string]bool) {
	for name := range internalNames {
		delete(c.Columns, name)
	}
}
