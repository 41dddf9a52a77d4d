// Package projectile tracks grenade-projectile entity positions tick by
// tick (SPEC_FULL §11, grounded on original_source/src/parsing/variants.rs
// grenade handling). It is a thin consumer of the entity engine: it never
// decodes bits itself, only reads out whatever the C9 entity engine
// already resolved for entities whose class name matches a projectile
// class.
package projectile

import (
	"strings"

	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/output"
)

// Row is one tick's snapshot of one live projectile entity.
type Row struct {
	EntityID  int32
	ClassName string
	Tick      int32
	X, Y, Z   float32
}

// projectileClassPrefixes names the engine classes considered grenade
// projectiles once spawned (e.g. "CSmokeGrenadeProjectile",
// "CMolotovProjectile"); matched as a prefix so variants stay covered.
var projectileClassPrefixes = []string{
	"CBaseCSGrenadeProjectile",
	"CSmokeGrenadeProjectile",
	"CMolotovProjectile",
	"CDecoyProjectile",
	"CFlashbangProjectile",
	"CHEGrenadeProjectile",
}

// Tracker reads one caller-supplied position PathKey (for example one a
// propcontroller.Controller resolved) rather than deriving it itself,
// keeping this package decoupled from sendtable's decision table. The same
// key is used for every projectile class.
type Tracker struct {
	positionKey entity.PathKey
	rows        []Row
}

// NewTracker returns a tracker that reads ent.Values[positionKey] as the
// projectile's origin vector on every CollectTick call.
func NewTracker(positionKey entity.PathKey) *Tracker {
	return &Tracker{positionKey: positionKey}
}

// IsProjectileClass reports whether className names a tracked grenade
// projectile class.
func IsProjectileClass(className string) bool {
	for _, p := range projectileClassPrefixes {
		if strings.HasPrefix(className, p) {
			return true
		}
	}
	return false
}

// CollectTick appends one Row per live projectile entity in eng, using
// its current position value if present.
func (t *Tracker) CollectTick(eng *entity.Engine, tick int32) {
	for id, ent := range eng.Entities {
		if !IsProjectileClass(ent.Class.Name) {
			continue
		}
		v, ok := ent.Values[t.positionKey]
		if !ok || v.Kind != output.KindVec3 {
			continue
		}
		t.rows = append(t.rows, Row{
			EntityID:  id,
			ClassName: ent.Class.Name,
			Tick:      tick,
			X:         v.Vec3.X,
			Y:         v.Vec3.Y,
			Z:         v.Vec3.Z,
		})
	}
}

// Rows returns every row collected so far, in collection order.
func (t *Tracker) Rows() []Row { return t.rows }
