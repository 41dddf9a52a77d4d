package output

import "testing"

func columnOf(name string, values ...int32) *PropColumn {
	c := NewPropColumn(name)
	for _, v := range values {
		c.Push(VI32(v), true)
	}
	return c
}

func TestCombineOrdersByStartOffsetAndConcatenates(t *testing.T) {
	shardB := ShardOutput{StartOffset: 200, Columns: map[string]*PropColumn{"tick": columnOf("tick", 10, 11)}}
	shardA := ShardOutput{StartOffset: 16, Columns: map[string]*PropColumn{"tick": columnOf("tick", 1, 2, 3)}}

	combined := Combine([]ShardOutput{shardB, shardA})
	col := combined.Columns["tick"]
	if col.Len() != 5 {
		t.Fatalf("got %d rows, want 5", col.Len())
	}
	if col.Values[0].I32 != 1 || col.Values[4].I32 != 11 {
		t.Fatalf("shards combined out of order: %+v", col.Values)
	}
}

func TestCombinePadsColumnsMissingFromASh(t *testing.T) {
	shardA := ShardOutput{StartOffset: 16, Columns: map[string]*PropColumn{
		"tick":   columnOf("tick", 1, 2),
		"health": columnOf("health", 100, 90),
	}}
	shardB := ShardOutput{StartOffset: 200, Columns: map[string]*PropColumn{
		"tick": columnOf("tick", 3, 4),
		// no "health" column in this shard
	}}
	combined := Combine([]ShardOutput{shardA, shardB})
	health := combined.Columns["health"]
	if health.Len() != 4 {
		t.Fatalf("got health column length %d, want 4 (padded)", health.Len())
	}
	if health.Present[2] || health.Present[3] {
		t.Fatal("padded rows should not be marked present")
	}
}

func TestFilterTicksKeepsOnlyWanted(t *testing.T) {
	c := Combined{Columns: map[string]*PropColumn{
		"tick":   columnOf("tick", 1, 2, 3, 4),
		"health": columnOf("health", 10, 20, 30, 40),
	}}
	filtered := FilterTicks(c, map[int32]bool{2: true, 4: true})
	tickCol := filtered.Columns["tick"]
	if tickCol.Len() != 2 {
		t.Fatalf("got %d rows, want 2", tickCol.Len())
	}
	if tickCol.Values[0].I32 != 2 || tickCol.Values[1].I32 != 4 {
		t.Fatalf("unexpected filtered ticks: %+v", tickCol.Values)
	}
	healthCol := filtered.Columns["health"]
	if healthCol.Values[0].I32 != 20 || healthCol.Values[1].I32 != 40 {
		t.Fatalf("unexpected filtered health: %+v", healthCol.Values)
	}
}

func TestFilterTicksNoopWhenEmpty(t *testing.T) {
	c := Combined{Columns: map[string]*PropColumn{"tick": columnOf("tick", 1, 2)}}
	filtered := FilterTicks(c, nil)
	if filtered.Columns["tick"].Len() != 2 {
		t.Fatal("expected no filtering when wantedTicks is empty")
	}
}
