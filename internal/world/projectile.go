package world

import (
	"time"

	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
)

const (
	SmokeRadius = 6
	SmokeLife   = 12 * time.Second
)

// Projectile is a bullet in flight. It moves in a straight line and hits the
// first player or collidable obstacle along its path.
type Projectile struct {
	Base
	def   *data.LootDef
	owner ecs.EntityID
	start geom.Vec2
	dir   geom.Vec2
	dist  float32
}

// AddProjectile fires a projectile of gun type def from pos along dir.
func (w *World) AddProjectile(def *data.LootDef, owner ecs.EntityID, pos, dir geom.Vec2) (*Projectile, error) {
	pr := &Projectile{
		def:   def,
		owner: owner,
		start: pos,
		dir:   dir.Normalize(geom.V(1, 0)),
	}
	if err := w.add(pr, KindProjectile, pos); err != nil {
		return nil, err
	}
	w.Projectiles.Set(pr.id, pr)
	return pr, nil
}

func (pr *Projectile) Bounds() geom.AABB {
	return geom.AABB{Min: pr.pos, Max: pr.pos}
}

func (pr *Projectile) Owner() ecs.EntityID { return pr.owner }
func (pr *Projectile) Dir() geom.Vec2      { return pr.dir }
func (pr *Projectile) Start() geom.Vec2    { return pr.start }
func (pr *Projectile) Def() *data.LootDef  { return pr.def }

// Update moves the projectile, checks the swept segment for hits and queues
// the projectile for removal on impact or at the end of its range.
func (pr *Projectile) Update(dt time.Duration) {
	if !pr.Live() || pr.queued {
		return
	}
	gun := pr.def.Gun
	step := gun.BulletSpeed * float32(dt.Seconds())
	expired := false
	if pr.dist+step >= gun.Range {
		step = max(0, gun.Range-pr.dist)
		expired = true
	}
	from := pr.pos
	to := from.Add(pr.dir.Mul(step))

	if hit, t := pr.firstHit(from, to); hit != nil {
		pr.moveTo(geom.Lerp(from, to, t))
		switch o := hit.(type) {
		case *Player:
			o.Damage(gun.Damage, pr.owner)
		case *Obstacle:
			o.Damage(gun.Damage)
		}
		pr.w.MarkForDestruction(pr)
		return
	}

	pr.dist += step
	pr.moveTo(to)
	if !expired {
		return
	}
	if gun.SmokeOnExpire {
		if _, err := pr.w.AddSmoke(pr.pos, SmokeRadius, SmokeLife); err != nil {
			pr.w.log.Warn("spawn smoke failed", zapID(pr.id))
		}
	}
	pr.w.MarkForDestruction(pr)
}

func (pr *Projectile) firstHit(from, to geom.Vec2) (Object, float32) {
	var best Object
	bestT := float32(2)
	for _, o := range pr.w.grid.IntersectSegment(from, to) {
		var t float32
		var ok bool
		switch c := o.(type) {
		case *Player:
			if c.id == pr.owner || c.dead {
				continue
			}
			t, ok = geom.SegmentCircleHit(from, to, c.pos, PlayerRadius)
		case *Obstacle:
			if !c.Collidable() {
				continue
			}
			t, ok = c.collider.SegmentHit(from, to)
		default:
			continue
		}
		if ok && t < bestT {
			best, bestT = o, t
		}
	}
	return best, bestT
}
