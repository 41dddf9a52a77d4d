// Package propcontroller resolves the set of "wanted" properties once per
// parse and maps friendly prop names (the names a caller passes on the
// command line, e.g. "m_iHealth") to the entity.PathKey each resolves to
// for a given class's serializer tree. Doing this once avoids repeating
// string matching on every tick in the C9/C10 hot loop (SPEC_FULL §11).
package propcontroller

import (
	"strings"

	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/sendtable"
)

// weaponPrefixes and grenadePrefixes are stripped twice over: the engine
// nests weapon/grenade econ fields under both an outer "m_hWeapons" array
// wrapper and the item's own "Weapon."/"Grenade." serializer prefix, so a
// caller-facing name like "Weapon.m_iClip1" must have both layers removed
// before matching against the flattened field path (REDESIGN FLAG: the
// original keeps these as a single string-replace; here the strip is two
// explicit passes so each layer's removal is independently testable).
var (
	weaponPrefixes  = []string{"Weapon.", "m_hWeapons."}
	grenadePrefixes = []string{"Grenade.", "m_hWeapons."}
)

// Controller holds the resolved friendly-name -> PathKey table for one
// class's serializer, built lazily the first time a class is seen.
type Controller struct {
	wantedProps []string
	wantedPaths map[string]map[string]entity.PathKey // class name -> friendly name -> path
}

// New returns a controller that will resolve wantedProps against whatever
// classes it's asked about via PathsFor.
func New(wantedProps []string) *Controller {
	return &Controller{wantedProps: wantedProps, wantedPaths: make(map[string]map[string]entity.PathKey)}
}

// WantedProps returns the caller-requested friendly prop names, unchanged.
func (c *Controller) WantedProps() []string { return c.wantedProps }

// PathsFor resolves c's wanted prop names against cls's serializer tree,
// caching the result per class name. Unresolvable names are silently
// skipped (a demo may not carry every requested prop on every class).
func (c *Controller) PathsFor(cls sendtable.Serializer) map[string]entity.PathKey {
	if cached, ok := c.wantedPaths[cls.Name]; ok {
		return cached
	}
	resolved := make(map[string]entity.PathKey, len(c.wantedProps))
	for _, friendly := range c.wantedProps {
		engineName := stripPrefixes(friendly)
		if key, ok := findField(&cls, engineName, entity.PathKey{}, 0); ok {
			resolved[friendly] = key
		}
	}
	c.wantedPaths[cls.Name] = resolved
	return resolved
}

// stripPrefixes removes the Weapon./Grenade. friendly-name wrapper and the
// m_hWeapons. array wrapper, in that order, leaving the bare engine field
// name that actually appears on the nested serializer.
func stripPrefixes(name string) string {
	for _, p := range weaponPrefixes {
		name = strings.TrimPrefix(name, p)
	}
	for _, p := range grenadePrefixes {
		name = strings.TrimPrefix(name, p)
	}
	return name
}

// findField depth-first searches ser's fields (and their ChildSerializers)
// for a field named name, returning the PathKey that reaches it.
func findField(ser *sendtable.Serializer, name string, prefix entity.PathKey, depth int) (entity.PathKey, bool) {
	if depth >= len(prefix.Indices) {
		return entity.PathKey{}, false
	}
	for i, f := range ser.Fields {
		if f.Name == name {
			key := prefix
			key.Indices[depth] = int32(i)
			key.Depth = depth
			return key, true
		}
	}
	for i, f := range ser.Fields {
		if f.ChildSerializer == nil {
			continue
		}
		key := prefix
		key.Indices[depth] = int32(i)
		if found, ok := findField(f.ChildSerializer, name, key, depth+1); ok {
			return found, true
		}
	}
	return entity.PathKey{}, false
}
