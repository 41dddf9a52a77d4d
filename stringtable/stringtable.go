// Package stringtable implements the string-table engine (spec component
// C6): table creation/delta decoding with a 32-entry key history and
// optional Snappy-compressed values, plus the instancebaseline/userinfo
// side effects the entity engine depends on. The key-history/backreference
// scheme mirrors the teacher's ion.Symtab fork-on-write string interning,
// adapted here to a fixed-capacity ring rather than a grow-only table.
package stringtable

import (
	"fmt"
	"strconv"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/compr"
	"github.com/csdemo/csdemo/errs"
)

// historyCapacity is the fixed size of the key-history FIFO (§3 invariant:
// "String-table key history is a FIFO of exactly the last 32 keys").
const historyCapacity = 32

// sentinelClassID is returned by parseInstanceBaselineKey for a key that
// does not parse as u32 (§3 invariant).
const sentinelClassID = ^uint32(0)

// Entry is one string-table row: an index, an optional key, and an
// optional (possibly decompressed) value payload.
type Entry struct {
	Index int32
	Key   string
	Value []byte
}

// Table is one named string table's current state.
type Table struct {
	Name          string
	MaxEntries    int32
	UserDataFixed bool
	UserDataSize  int32
	Flags         int32
	entries       map[int32]Entry
	history       []string // ring buffer, oldest-first logically via historyPush
}

// NewTable constructs an empty table (the "create" operation's shell
// before DecodeEntries populates it).
func NewTable(name string, maxEntries int32, userDataFixed bool, userDataSize, flags int32) *Table {
	return &Table{
		Name:          name,
		MaxEntries:    maxEntries,
		UserDataFixed: userDataFixed,
		UserDataSize:  userDataSize,
		Flags:         flags,
		entries:       make(map[int32]Entry),
	}
}

// Entries returns every currently-known row, unordered.
func (t *Table) Entries() map[int32]Entry { return t.entries }

// historyPush appends key to the ring, evicting the oldest entry once at
// capacity.
func (t *Table) historyPush(key string) {
	t.history = append(t.history, key)
	if len(t.history) > historyCapacity {
		t.history = t.history[len(t.history)-historyCapacity:]
	}
}

// Engine owns every live table plus the baseline/userinfo side tables the
// entity engine and game-event decoder read from.
type Engine struct {
	tables    map[string]*Table
	Baselines map[uint32][]byte
	UserInfo  map[uint64]UserInfo
}

// UserInfo is the decoded "userinfo" table payload for one connected
// client slot.
type UserInfo struct {
	Name         string
	SteamID      uint64
	EntityIndex  int32
	IsFakePlayer bool
	IsHLTV       bool
}

// NewEngine returns an empty string-table engine.
func NewEngine() *Engine {
	return &Engine{
		tables:    make(map[string]*Table),
		Baselines: make(map[uint32][]byte),
		UserInfo:  make(map[uint64]UserInfo),
	}
}

// CreateTable registers a brand-new table (the StringTables/
// CreateStringTable message kind), replacing any previous table of the
// same name.
func (e *Engine) CreateTable(name string, maxEntries int32, userDataFixed bool, userDataSize, flags int32) *Table {
	t := NewTable(name, maxEntries, userDataFixed, userDataSize, flags)
	e.tables[name] = t
	return t
}

// Table looks up a table by name.
func (e *Engine) Table(name string) (*Table, bool) {
	t, ok := e.tables[name]
	return t, ok
}

// ClearAllStringTables drops every table (the ClearAllStringTables demo
// command).
func (e *Engine) ClearAllStringTables() {
	e.tables = make(map[string]*Table)
}

// DecodeEntries runs the bit-packed entry stream from §4.6 against t,
// mutating t.entries and, for the special table names, the engine's
// baseline/userinfo side tables.
func (e *Engine) DecodeEntries(t *Table, r *bitread.Reader, entryCount int32) error {
	idx := int32(-1)
	for i := int32(0); i < entryCount; i++ {
		incr, err := r.ReadBit()
		if err != nil {
			return err
		}
		if incr {
			idx++
		} else {
			delta, err := r.ReadVarUint32()
			if err != nil {
				return err
			}
			idx += 1 + int32(delta)
		}

		hasKey, err := r.ReadBit()
		if err != nil {
			return err
		}
		var key string
		if hasKey {
			useHistory, err := r.ReadBit()
			if err != nil {
				return err
			}
			if useHistory {
				key, err = e.readHistoryBackref(t, r)
				if err != nil {
					return err
				}
			} else {
				key, err = r.ReadString()
				if err != nil {
					return err
				}
			}
			t.historyPush(key)
		}

		hasValue, err := r.ReadBit()
		if err != nil {
			return err
		}
		var value []byte
		if hasValue {
			value, err = t.readValue(r, idx)
			if err != nil {
				return err
			}
		}
		t.entries[idx] = Entry{Index: idx, Key: key, Value: value}
		e.applySideEffects(t, key, value, idx)
	}
	return nil
}

// readValue reads one entry's value payload per §4.6: a fixed-width blob
// when UserDataFixed, otherwise a 17-bit byte-length prefix with an
// optional leading compressed flag when the table's flags bit 0 is set.
func (t *Table) readValue(r *bitread.Reader, idx int32) ([]byte, error) {
	var numBits int32
	isCompressed := false
	if t.UserDataFixed {
		numBits = t.UserDataSize
	} else {
		if t.Flags&1 != 0 {
			bit, err := r.ReadBit()
			if err != nil {
				return nil, err
			}
			isCompressed = bit
		}
		lenBits, err := r.ReadNBits(17)
		if err != nil {
			return nil, err
		}
		numBits = int32(lenBits) * 8
	}
	raw, err := r.ReadNBytes(int(numBits / 8))
	if err != nil {
		return nil, err
	}
	if !isCompressed {
		return raw, nil
	}
	out, err := compr.DecodeSnappy(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: string table %s entry %d: %s", errs.ErrDecompression, t.Name, idx, err)
	}
	return out, nil
}

// readHistoryBackref implements the pos/length key-reconstruction scheme:
// a 5-bit position into the history ring and a 5-bit length of how many
// bytes of that historical key to reuse as a prefix, followed by a literal
// suffix string.
func (e *Engine) readHistoryBackref(t *Table, r *bitread.Reader) (string, error) {
	pos, err := r.ReadNBits(5)
	if err != nil {
		return "", err
	}
	length, err := r.ReadNBits(5)
	if err != nil {
		return "", err
	}
	suffix, err := r.ReadString()
	if err != nil {
		return "", err
	}
	if int(pos) >= len(t.history) {
		return suffix, nil
	}
	prefixSrc := t.history[pos]
	n := int(length)
	if n > len(prefixSrc) {
		n = len(prefixSrc)
	}
	return prefixSrc[:n] + suffix, nil
}

// applySideEffects implements §4.6's "when name == ..." rules. idx is the
// string-table entry index, which for the "userinfo" table is the client's
// entity index (slot number), needed to resolve pawn-referencing event keys
// back to a player identity in §4.10.
func (e *Engine) applySideEffects(t *Table, key string, value []byte, idx int32) {
	switch t.Name {
	case "instancebaseline":
		classID := parseInstanceBaselineKey(key)
		if classID != sentinelClassID {
			e.Baselines[classID] = value
		}
	case "userinfo":
		if ui, ok := decodeUserInfo(value); ok {
			ui.EntityIndex = idx
			e.UserInfo[ui.SteamID] = ui
		}
	}
}

// parseInstanceBaselineKey parses key as a u32 class id, returning the
// sentinel on failure (§3 invariant).
func parseInstanceBaselineKey(key string) uint32 {
	v, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return sentinelClassID
	}
	return uint32(v)
}

// decodeUserInfo is a minimal projection of the userinfo payload; the full
// wire layout is the engine's player_info_t struct (out of scope per §1 —
// only the fields the entity/event layers need are extracted).
func decodeUserInfo(value []byte) (UserInfo, bool) {
	if len(value) < 8 {
		return UserInfo{}, false
	}
	var steamID uint64
	for i := 0; i < 8; i++ {
		steamID |= uint64(value[i]) << (8 * i)
	}
	return UserInfo{SteamID: steamID}, steamID != 0
}
