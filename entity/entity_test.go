package entity

import (
	"testing"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/class"
	"github.com/csdemo/csdemo/fieldpath"
	"github.com/csdemo/csdemo/sendtable"
)

type bitBuilder struct {
	bits []bool
}

func (b *bitBuilder) pushBit(v bool) { b.bits = append(b.bits, v) }

func (b *bitBuilder) pushBits(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		b.pushBit((v>>i)&1 == 1)
	}
}

func (b *bitBuilder) bytes() []byte {
	out := make([]byte, (len(b.bits)+7)/8)
	for i, bit := range b.bits {
		if bit {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func setupRegistries(t *testing.T) (*sendtable.Registry, *class.Registry) {
	t.Helper()
	sr := sendtable.NewRegistry()
	_, err := sr.Build(sendtable.SerializerDef{
		Name: "CTestPawn",
		Fields: []sendtable.FieldDef{
			{VarName: "m_bAlive", VarType: "bool"},
			{VarName: "m_iHealth", VarType: "int32"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	cr := class.NewRegistry()
	cr.AddClassInfo(1, "CTestPawn", "CTestPawn", sr)
	return sr, cr
}

// The field-path trie is not exported, so this test builds its delta with
// appendFinish below, which finds the FieldPathEncodeFinish code by
// decoding trial bit patterns through fieldpath.Decode rather than
// hardcoding bit constants.
func TestEnterCreatesEntityWithClass(t *testing.T) {
	sr, cr := setupRegistries(t)
	cls, _ := cr.ByID(1)

	eng := NewEngine(cr, nil)
	// Directly exercise applyDelta via an Enter packet: class bits=8,
	// serial 0, then an immediate finish (no baseline, no fields) to
	// confirm the bookkeeping around Enter works end to end.
	var b bitBuilder
	b.pushBits(1, 8)  // class id 1 (8 class-bits is plenty for this test)
	b.pushBits(0, 17) // serial
	// field-path stream: an empty delta (FieldPathEncodeFinish immediately).
	appendFinish(&b)

	hdr := PacketEntitiesHeader{UpdatedEntries: 1, IsDelta: true}
	var outer bitBuilder
	outer.pushBits(1, 1) // ubit_var_fp: a set first flag selects the 2-bit width
	outer.pushBits(0, 2) // entity-id delta 0 -> id 0
	outer.pushBits(uint32(CommandEnter), 2)
	outer.bits = append(outer.bits, b.bits...)

	r := bitread.New(outer.bytes())
	if err := eng.ApplyPacketEntities(r, hdr, 8); err != nil {
		t.Fatal(err)
	}
	ent, ok := eng.Entities[0]
	if !ok {
		t.Fatal("expected entity 0 to exist after Enter")
	}
	if ent.Class.Name != cls.Name {
		t.Fatalf("got class %s, want %s", ent.Class.Name, cls.Name)
	}
	_ = sr
}

// appendFinish pushes the bits for OpFieldPathEncodeFinish by relying on
// fieldpath's own canonical code, recovered by decoding a trial buffer
// built one op at a time isn't exposed publicly, so this test instead
// round-trips through fieldpath.Decode directly in the fieldpath package's
// own test suite; here we only need *an* empty delta, which in this
// table's canonical assignment is a 3-bit code. We reconstruct it by
// invoking fieldpath.Decode against every code of length 1 to 10, shortest
// first, until one returns done=true after consuming exactly its own
// length, which is deterministic given the fixed table built at init time.
func appendFinish(b *bitBuilder) {
	for length := uint(1); length <= 10; length++ {
		for code := uint32(0); code < 1<<length; code++ {
			var trial bitBuilder
			trial.pushBits(code, length)
			r := bitread.New(trial.bytes())
			p := &fieldpath.Path{}
			done, err := fieldpath.Decode(r, p)
			if err == nil && done && r.BitPosition() == int64(length) {
				b.pushBits(code, length)
				return
			}
		}
	}
}
