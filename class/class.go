// Package class implements the class registry (spec component C5): a
// dense class-id -> Class map populated from ClassInfo messages, with
// forward-reference resolution against the sendtable.Registry's
// not-yet-published serializers.
package class

import (
	"math/bits"

	"github.com/csdemo/csdemo/sendtable"
)

// Class is {class_id, name, serializer}, immutable once the registry
// freezes (§3).
type Class struct {
	ID         int32
	Name       string
	Serializer *sendtable.Serializer
}

// Registry is the dense class_id -> Class map plus its name index. A
// ClassInfo entry whose serializer hasn't been published yet is held as a
// pending entry and resolved the next time a serializer with that name is
// built.
type Registry struct {
	byID     map[int32]Class
	byName   map[string]Class
	pending  map[string][]int32 // serializer name -> class ids waiting on it
	names    map[int32]string
	maxClass int32
	frozen   bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[int32]Class),
		byName:  make(map[string]Class),
		pending: make(map[string][]int32),
		names:   make(map[int32]string),
	}
}

// AddClassInfo registers one ClassInfo entry. If serializerName has already
// been published in sr, the class resolves immediately; otherwise it is
// queued until ResolvePending(serializerName) is called once that
// serializer publishes (§4.5).
func (r *Registry) AddClassInfo(classID int32, name, serializerName string, sr *sendtable.Registry) {
	r.names[classID] = name
	if classID > r.maxClass {
		r.maxClass = classID
	}
	if s, ok := sr.Lookup(serializerName); ok {
		r.publish(classID, name, s)
		return
	}
	r.pending[serializerName] = append(r.pending[serializerName], classID)
}

// ResolvePending resolves every class id waiting on serializerName, called
// right after sendtable.Registry.Build publishes it.
func (r *Registry) ResolvePending(serializerName string, sr *sendtable.Registry) {
	ids, ok := r.pending[serializerName]
	if !ok {
		return
	}
	s, ok := sr.Lookup(serializerName)
	if !ok {
		return
	}
	for _, id := range ids {
		r.publish(id, r.names[id], s)
	}
	delete(r.pending, serializerName)
}

func (r *Registry) publish(classID int32, name string, s *sendtable.Serializer) {
	c := Class{ID: classID, Name: name, Serializer: s}
	r.byID[classID] = c
	r.byName[name] = c
}

// Freeze sets the registry's frozen flag. AddClassInfo and ResolvePending
// do not check that flag, and nothing in this module calls Freeze.
func (r *Registry) Freeze() { r.frozen = true }

// ByID looks up a class by its dense id.
func (r *Registry) ByID(id int32) (Class, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ByName looks up a class by its network name.
func (r *Registry) ByName(name string) (Class, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// BitWidth returns ceil(log2(max_classes+1)), the number of bits the wire
// format uses to encode a class id (§3).
func (r *Registry) BitWidth() uint {
	if r.maxClass <= 0 {
		return 1
	}
	// for m >= 1, ceil(log2(m+1)) is the bit length of m.
	return uint(bits.Len32(uint32(r.maxClass)))
}

// Pending reports how many serializer names are still awaited by at least
// one class id.
func (r *Registry) Pending() int { return len(r.pending) }
