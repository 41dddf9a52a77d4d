// Package itemdrop decodes economy/equipment drop events into typed rows
// (SPEC_FULL §11, grounded on original_source/src/parsing/variants.rs's
// EconItem). It is a thin projection over gameevent.Event: item_pickup and
// bot_takeover game events already carry everything a drop row needs once
// resolved by package gameevent, so this package just picks the right
// fields out of whichever of those events it's given.
package itemdrop

import "github.com/csdemo/csdemo/output"

// Row is one economy/item-drop record (already named in spec.md §6's
// item_drops/skins output fields; this defines the shape).
type Row struct {
	Tick        int32
	SteamID     uint64
	EntityID    int32
	ItemName    string
	InInventory bool
}

// dropEventNames are the game events that carry an item acquisition.
var dropEventNames = map[string]bool{
	"item_pickup":   true,
	"bot_takeover":  true,
	"item_purchase": true,
}

// FromEvent builds a Row from an already-resolved gameevent.Event if ev is
// one of the recognized drop-carrying event names, returning ok=false
// otherwise.
func FromEvent(name string, tick int32, fields map[string]output.Variant) (Row, bool) {
	if !dropEventNames[name] {
		return Row{}, false
	}
	row := Row{Tick: tick}
	if v, ok := fields["userid_steamid"]; ok {
		row.SteamID = v.U64
	}
	if v, ok := fields["userid"]; ok {
		row.EntityID = v.I32
	}
	if v, ok := fields["item"]; ok {
		row.ItemName = v.Str
	}
	if v, ok := fields["defindex"]; ok && row.ItemName == "" {
		row.ItemName = v.Str
	}
	if v, ok := fields["inventory"]; ok {
		row.InInventory = v.Bool
	} else {
		row.InInventory = name != "bot_takeover"
	}
	return row, true
}
