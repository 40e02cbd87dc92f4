package world

import (
	"math"
	"time"

	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/event"
	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/data"
)

const (
	PlayerRadius  float32 = 1
	PlayerSpeed   float32 = 12 // units per second
	HealSlowdown  float32 = 0.5
	MaxHealth     float32 = 100
	MaxBoost      float32 = 100
	BoostDecay    float32 = 2 // per second
	BoostRegen    float32 = 1 // health per second while boosted
	DefaultZoom   float32 = 28
	PickupRadius  float32 = 2.5
	WeaponSlots           = 2
	MaxEquipLevel uint8   = 3
)

// Input is the last control state received from the owning client. It is
// clamped by SetInput before the player update reads it.
type Input struct {
	Seq       uint8
	Move      uint8 // packet.Move* bits
	Aim       geom.Vec2
	Shoot     bool
	Reload    bool
	Interact  bool
	EquipSlot int8   // -1 keeps the current slot
	UseHeal   uint16 // loot id of a heal item, 0 for none
}

const (
	moveLeft  = 1 << 0
	moveRight = 1 << 1
	moveUp    = 1 << 2
	moveDown  = 1 << 3
)

type weaponSlot struct {
	gun  *data.LootDef
	clip int
}

// Player is a participant controlled by one client.
type Player struct {
	Base

	// full
	name         string
	outfit       uint8
	helmet       uint8
	chest        uint8
	backpack     uint8
	activeWeapon uint16
	layer        uint8
	dead         bool

	// part
	dir geom.Vec2

	// local to the owning client
	health     float32
	boost      float32
	zoom       float32
	weapons    [WeaponSlots]weaponSlot
	curSlot    int
	ammo       map[uint16]int
	heals      map[uint16]int
	scope      *data.LootDef
	reloading  time.Duration
	healing    time.Duration
	healItem   *data.LootDef
	fireCool   time.Duration
	localDirty bool

	input   Input
	kills   int
	lastHit ecs.EntityID
}

// AddPlayer spawns a player with full health and empty hands.
func (w *World) AddPlayer(name string, pos geom.Vec2) (*Player, error) {
	p := &Player{
		name:   SanitizeName(name),
		dir:    geom.V(1, 0),
		health: MaxHealth,
		zoom:   DefaultZoom,
		ammo:   make(map[uint16]int),
		heals:  make(map[uint16]int),
	}
	p.input.EquipSlot = -1
	if err := w.add(p, KindPlayer, w.ClampToMap(pos, PlayerRadius)); err != nil {
		return nil, err
	}
	w.Players.Set(p.id, p)
	w.setAlive(w.alive + 1)
	p.localDirty = true
	return p, nil
}

func (p *Player) Bounds() geom.AABB {
	return geom.BoxAround(p.pos, PlayerRadius, PlayerRadius)
}

func (p *Player) Name() string     { return p.name }
func (p *Player) Dir() geom.Vec2   { return p.dir }
func (p *Player) Dead() bool       { return p.dead }
func (p *Player) Health() float32  { return p.health }
func (p *Player) Boost() float32   { return p.boost }
func (p *Player) Kills() int       { return p.kills }
func (p *Player) LocalDirty() bool { return p.localDirty }

// LastHit is the player that most recently damaged p.
func (p *Player) LastHit() ecs.EntityID { return p.lastHit }

// Zoom returns the radius of the player's view in world units.
func (p *Player) Zoom() float32 { return p.zoom }

// Ammo returns how many rounds of the given ammo type the player carries.
func (p *Player) Ammo(id uint16) int { return p.ammo[id] }

// Clip returns the rounds loaded in the active weapon.
func (p *Player) Clip() int { return p.weapons[p.curSlot].clip }

func (p *Player) Gun() *data.LootDef { return p.weapons[p.curSlot].gun }

func (p *Player) Reloading() bool { return p.reloading > 0 }
func (p *Player) Healing() bool   { return p.healing > 0 }

func (p *Player) setLocal() { p.localDirty = true }

// SetInput stores the client's controls after clamping malformed values.
func (p *Player) SetInput(in Input) {
	if !in.Aim.IsFinite() {
		in.Aim = p.dir
	}
	in.Aim = in.Aim.Normalize(p.dir)
	in.Move &= moveLeft | moveRight | moveUp | moveDown
	if in.EquipSlot >= WeaponSlots {
		in.EquipSlot = WeaponSlots - 1
	}
	if in.EquipSlot < -1 {
		in.EquipSlot = -1
	}
	if in.UseHeal != 0 && p.heals[in.UseHeal] == 0 {
		in.UseHeal = 0
	}
	p.input = in
}

func (p *Player) moveDir() geom.Vec2 {
	var d geom.Vec2
	m := p.input.Move
	if m&moveLeft != 0 {
		d.X--
	}
	if m&moveRight != 0 {
		d.X++
	}
	if m&moveUp != 0 {
		d.Y++
	}
	if m&moveDown != 0 {
		d.Y--
	}
	return d.Normalize(geom.Vec2{})
}

// Update advances movement, aim, action timers and firing by dt.
func (p *Player) Update(dt time.Duration) {
	if p.dead || !p.Live() {
		return
	}
	sec := float32(dt.Seconds())

	p.move(sec)
	setPart(&p.Base, &p.dir, p.input.Aim.Normalize(p.dir))

	if p.input.EquipSlot >= 0 && int(p.input.EquipSlot) != p.curSlot {
		p.equip(int(p.input.EquipSlot))
	}
	p.tickTimers(dt)

	if p.input.UseHeal != 0 && p.healing == 0 {
		p.startHeal(p.input.UseHeal)
	}
	if p.input.Reload {
		p.startReload()
	}
	if p.input.Shoot {
		p.fire()
	}
	if p.input.Interact {
		p.pickupNearest()
		p.input.Interact = false
	}
	if p.boost > 0 {
		p.boost = max(0, p.boost-BoostDecay*sec)
		p.health = min(MaxHealth, p.health+BoostRegen*sec)
		p.setLocal()
	}
}

func (p *Player) move(sec float32) {
	d := p.moveDir()
	if d.IsZero() {
		return
	}
	speed := PlayerSpeed
	if p.healing > 0 {
		speed *= HealSlowdown
	}
	next := p.w.ClampToMap(p.pos.Add(d.Mul(speed*sec)), PlayerRadius)
	next = p.w.pushOutOfObstacles(next, PlayerRadius)
	p.moveTo(next)
}

// pushOutOfObstacles resolves overlap between a circle and collidable
// obstacles with a couple of relaxation passes.
func (w *World) pushOutOfObstacles(pos geom.Vec2, r float32) geom.Vec2 {
	for pass := 0; pass < 2; pass++ {
		moved := false
		for _, o := range w.grid.IntersectCircle(pos, r) {
			ob, ok := o.(*Obstacle)
			if !ok || !ob.Collidable() {
				continue
			}
			if off, hit := ob.collider.PushCircleOut(pos, r); hit {
				pos = pos.Add(off)
				moved = true
			}
		}
		pos = w.ClampToMap(pos, r)
		if !moved {
			break
		}
	}
	return pos
}

func (p *Player) tickTimers(dt time.Duration) {
	if p.fireCool > 0 {
		p.fireCool = max(0, p.fireCool-dt)
	}
	if p.reloading > 0 {
		p.reloading -= dt
		if p.reloading <= 0 {
			p.reloading = 0
			p.finishReload()
		}
		p.setLocal()
	}
	if p.healing > 0 {
		p.healing -= dt
		if p.healing <= 0 {
			p.healing = 0
			p.finishHeal()
		}
		p.setLocal()
	}
}

func (p *Player) equip(slot int) {
	p.curSlot = slot
	p.reloading = 0
	var id uint16
	if g := p.weapons[slot].gun; g != nil {
		id = g.ID
	}
	setFull(&p.Base, &p.activeWeapon, id)
	p.setLocal()
}

func (p *Player) startReload() {
	slot := &p.weapons[p.curSlot]
	if slot.gun == nil || p.reloading > 0 || slot.clip >= slot.gun.Gun.Clip {
		return
	}
	if p.ammoFor(slot.gun) == 0 {
		return
	}
	p.healing = 0
	p.healItem = nil
	p.reloading = slot.gun.Gun.ReloadTime()
	if p.reloading <= 0 {
		p.finishReload()
	}
	p.setLocal()
}

func (p *Player) ammoFor(gun *data.LootDef) int {
	if gun.Gun.Ammo == "" {
		return math.MaxInt32
	}
	def, ok := p.w.defs.Loot.Get(gun.Gun.Ammo)
	if !ok {
		return 0
	}
	return p.ammo[def.ID]
}

func (p *Player) finishReload() {
	slot := &p.weapons[p.curSlot]
	if slot.gun == nil {
		return
	}
	need := slot.gun.Gun.Clip - slot.clip
	if slot.gun.Gun.Ammo == "" {
		slot.clip += need
		return
	}
	def, ok := p.w.defs.Loot.Get(slot.gun.Gun.Ammo)
	if !ok {
		return
	}
	n := min(need, p.ammo[def.ID])
	slot.clip += n
	p.ammo[def.ID] -= n
	p.setLocal()
}

func (p *Player) startHeal(id uint16) {
	def, ok := p.w.defs.Loot.ByID(id)
	if !ok || def.Kind != data.LootHeal || p.heals[id] == 0 {
		return
	}
	if def.Boost == 0 && p.health >= MaxHealth {
		return
	}
	p.reloading = 0
	p.healItem = def
	p.healing = def.UseTime()
	if p.healing <= 0 {
		p.finishHeal()
	}
	p.setLocal()
}

func (p *Player) finishHeal() {
	def := p.healItem
	p.healItem = nil
	if def == nil || p.heals[def.ID] == 0 {
		return
	}
	p.heals[def.ID]--
	p.health = min(MaxHealth, p.health+def.Heal)
	p.boost = min(MaxBoost, p.boost+def.Boost)
	p.setLocal()
}

func (p *Player) fire() {
	slot := &p.weapons[p.curSlot]
	if slot.gun == nil || p.fireCool > 0 || p.reloading > 0 {
		return
	}
	if slot.clip == 0 {
		p.startReload()
		return
	}
	gun := slot.gun.Gun
	slot.clip--
	p.fireCool = gun.FireDelay()
	p.healing = 0
	p.healItem = nil
	p.setLocal()

	muzzle := p.pos.Add(p.dir.Mul(PlayerRadius + 0.1))
	spread := gun.SpreadDeg * math.Pi / 180
	for i := 0; i < gun.Pellets; i++ {
		dir := p.dir
		if spread > 0 {
			dir = dir.Rotate((p.w.rng.Float32() - 0.5) * spread)
		}
		if _, err := p.w.AddProjectile(slot.gun, p.id, muzzle, dir); err != nil {
			p.w.log.Warn("spawn projectile failed", zapID(p.id))
			return
		}
	}
}

// Damage applies damage after armour and kills the player at zero health.
func (p *Player) Damage(amount float32, source ecs.EntityID) {
	if p.dead || !p.Live() || amount <= 0 {
		return
	}
	reduce := 0.1 * float32(p.helmet+p.chest)
	amount *= 1 - geom.Clamp(reduce, 0, 0.6)
	p.health = max(0, p.health-amount)
	if source != 0 {
		p.lastHit = source
	}
	p.setLocal()
	if p.health > 0 {
		return
	}
	setFull(&p.Base, &p.dead, true)
	p.w.setAlive(p.w.alive - 1)
	event.Emit(p.w.bus, event.PlayerKilled{
		VictimID: p.id,
		KillerID: source,
		Pos:      p.pos,
		Layer:    p.layer,
	})
}

// pickupNearest picks up the closest loot within reach.
func (p *Player) pickupNearest() {
	var best *Loot
	bestD := PickupRadius * PickupRadius
	for _, o := range p.w.grid.IntersectCircle(p.pos, PickupRadius) {
		l, ok := o.(*Loot)
		if !ok || l.base().queued {
			continue
		}
		if d := l.pos.DistSq(p.pos); d <= bestD {
			best, bestD = l, d
		}
	}
	if best != nil {
		p.Pickup(best)
	}
}

// Pickup moves loot into the inventory. Whatever does not fit stays on the
// ground with a reduced count.
func (p *Player) Pickup(l *Loot) bool {
	def := l.def
	taken := 0
	switch def.Kind {
	case data.LootGun:
		slot := -1
		for i := range p.weapons {
			if p.weapons[i].gun == nil {
				slot = i
				break
			}
		}
		if slot < 0 {
			slot = p.curSlot
			p.dropWeapon(slot)
		}
		p.weapons[slot] = weaponSlot{gun: def}
		if slot == p.curSlot {
			setFull(&p.Base, &p.activeWeapon, def.ID)
		}
		taken = 1
	case data.LootAmmo:
		room := def.Stack*p.capacity() - p.ammo[def.ID]
		taken = min(room, l.count)
		p.ammo[def.ID] += taken
	case data.LootHeal:
		room := def.Stack*p.capacity() - p.heals[def.ID]
		taken = min(room, l.count)
		p.heals[def.ID] += taken
	case data.LootScope:
		if p.scope != nil && p.scope.Zoom >= def.Zoom {
			return false
		}
		p.scope = def
		p.zoom = def.Zoom
		taken = 1
	case data.LootHelmet:
		taken = p.upgrade(&p.helmet, def.Level)
	case data.LootChest:
		taken = p.upgrade(&p.chest, def.Level)
	case data.LootBackpack:
		taken = p.upgrade(&p.backpack, def.Level)
	}
	if taken <= 0 {
		return false
	}
	p.setLocal()
	if taken >= l.count {
		p.w.MarkForDestruction(l)
	} else {
		l.SetCount(l.count - taken)
	}
	return true
}

func (p *Player) upgrade(field *uint8, level uint8) int {
	level = min(level, MaxEquipLevel)
	if level <= *field {
		return 0
	}
	setFull(&p.Base, field, level)
	return 1
}

func (p *Player) capacity() int {
	return 1 + int(p.backpack)
}

func (p *Player) dropWeapon(slot int) {
	g := p.weapons[slot].gun
	if g == nil {
		return
	}
	p.weapons[slot] = weaponSlot{}
	if _, err := p.w.SpawnLoot(g, 1, p.pos); err != nil {
		p.w.log.Warn("drop weapon failed", zapID(p.id))
	}
}

// DropInventory scatters everything the player carries around its position.
func (p *Player) DropInventory() {
	for i := range p.weapons {
		p.dropWeapon(i)
	}
	drop := func(items map[uint16]int) {
		for id, n := range items {
			if def, ok := p.w.defs.Loot.ByID(id); ok && n > 0 {
				if _, err := p.w.SpawnLoot(def, n, p.pos); err != nil {
					p.w.log.Warn("drop loot failed", zapID(p.id))
				}
			}
			delete(items, id)
		}
	}
	drop(p.ammo)
	drop(p.heals)
	p.setLocal()
}

// Give puts items straight into the inventory. Guns arrive loaded.
func (p *Player) Give(def *data.LootDef, count int) bool {
	if !p.Pickup(&Loot{def: def, count: count}) {
		return false
	}
	if def.Kind == data.LootGun {
		for i := range p.weapons {
			if p.weapons[i].gun == def && p.weapons[i].clip == 0 {
				p.weapons[i].clip = def.Gun.Clip
				break
			}
		}
	}
	return true
}
