package world

import (
	"math"

	"royale-server/internal/geom"
)

const (
	PlayerRadius    = 1.0
	PlayerMaxHealth = 100.0
	PlayerMaxBoost  = 100.0
	PlayerSpeed     = 12.0 // units/s
	PlayerViewRange = 60.0 // netsync visibility radius
	WeaponSlots     = 4
	SwitchDelay     = 0.25 // seconds before a swapped-in gun can fire
)

// Weapon slots
const (
	SlotPrimary = iota
	SlotSecondary
	SlotMelee
	SlotThrowable
)

// Weapon is one loadout slot. Type "" is an empty slot.
type Weapon struct {
	Type     string
	Ammo     int
	ClipSize int
	Damage   float64
	Cooldown float64 // seconds between shots
	Speed    float64 // projectile speed, 0 for melee
	Range    float64
}

// Empty reports whether the slot holds nothing
func (w *Weapon) Empty() bool { return w.Type == "" }

// Input is the latest control state sent by a client
type Input struct {
	Move  geom.Vec2
	Aim   geom.Vec2
	Shoot bool
	Seq   uint32
}

// Player is a connected participant
type Player struct {
	Base
	Name         string
	IP           string
	GroupID      uint32
	Radius       float64
	Health       float64
	Boost        float64
	Dead         bool
	Disconnected bool
	Kills        int
	DamageDealt  float64
	DamageTaken  float64
	KilledBy     uint32
	TimeAlive    float64
	Weapons      [WeaponSlots]Weapon
	CurWeapon    int
	Inventory    map[string]int
	Input        Input
	Vel          geom.Vec2
	Speed        float64
	ViewRange    float64

	fireCD float64
}

// NewPlayer creates a living player at pos with the default loadout
func NewPlayer(name, ip string, pos geom.Vec2) *Player {
	p := &Player{
		Base:      Base{kind: KindPlayer, Pos: pos},
		Name:      name,
		IP:        ip,
		Radius:    PlayerRadius,
		Health:    PlayerMaxHealth,
		Inventory: make(map[string]int),
		Speed:     PlayerSpeed,
		ViewRange: PlayerViewRange,
	}
	p.Weapons = DefaultLoadout()
	return p
}

// DefaultLoadout returns the starting weapons
func DefaultLoadout() [WeaponSlots]Weapon {
	var w [WeaponSlots]Weapon
	w[SlotPrimary] = Weapon{Type: "rifle", Ammo: 30, ClipSize: 30, Damage: 14, Cooldown: 0.1, Speed: 100, Range: 120}
	w[SlotMelee] = Weapon{Type: "fists", Damage: 20, Cooldown: 0.25, Range: 1.5}
	return w
}

func (p *Player) Shape() geom.Shape { return geom.Circle(p.Pos, p.Radius) }

// Alive reports whether the player is in play
func (p *Player) Alive() bool { return !p.Dead && !p.Disconnected }

// ActiveWeapon returns the weapon in the current slot
func (p *Player) ActiveWeapon() *Weapon { return &p.Weapons[p.CurWeapon] }

// SetCooldown blocks firing for d seconds
func (p *Player) SetCooldown(d float64) { p.fireCD = d }

// Cooldown returns the seconds until the player can fire
func (p *Player) Cooldown() float64 { return p.fireCD }

// CanFire returns true if the player wants to and is able to shoot a projectile
func (p *Player) CanFire() bool {
	w := p.ActiveWeapon()
	return p.Alive() && p.Input.Shoot && p.fireCD <= 0 && w.Speed > 0 && w.Ammo > 0
}

// CanSwing reports whether the player attacks with a melee weapon this tick
func (p *Player) CanSwing() bool {
	w := p.ActiveWeapon()
	return p.Alive() && p.Input.Shoot && p.fireCD <= 0 && w.Speed == 0 && !w.Empty()
}

// Update moves the player one tick inside [0,width] x [0,height]
func (p *Player) Update(dt, width, height float64) {
	if !p.Alive() {
		return
	}
	p.TimeAlive += dt
	if p.fireCD > 0 {
		p.fireCD = math.Max(p.fireCD-dt, 0)
	}

	p.Vel = p.Input.Move.Normalize().Mul(p.Speed)
	if p.Vel == (geom.Vec2{}) {
		return
	}
	next := p.Pos.Add(p.Vel.Mul(dt))
	next = geom.ClampVec(next, geom.V(p.Radius, p.Radius), geom.V(width-p.Radius, height-p.Radius))
	p.MoveTo(next)
}

// ApplyDamage removes health and returns the amount actually taken
func (p *Player) ApplyDamage(amount float64) float64 {
	if amount <= 0 || p.Dead {
		return 0
	}
	dealt := math.Min(amount, p.Health)
	p.Health -= dealt
	p.DamageTaken += dealt
	p.MarkDirty(DirtyHealth)
	return dealt
}

// Heal adds health up to the maximum
func (p *Player) Heal(amount float64) {
	h := geom.Clamp(p.Health+amount, 0, PlayerMaxHealth)
	if h != p.Health {
		p.Health = h
		p.MarkDirty(DirtyHealth)
	}
}

// AddBoost adds adrenaline up to the maximum
func (p *Player) AddBoost(amount float64) {
	b := geom.Clamp(p.Boost+amount, 0, PlayerMaxBoost)
	if b != p.Boost {
		p.Boost = b
		p.MarkDirty(DirtyBoost)
	}
}

// SwitchWeapon makes slot active, returns false for empty or invalid slots
func (p *Player) SwitchWeapon(slot int, delay float64) bool {
	if slot < 0 || slot >= WeaponSlots || p.Weapons[slot].Empty() || slot == p.CurWeapon {
		return false
	}
	p.CurWeapon = slot
	p.fireCD = math.Max(p.fireCD, delay)
	p.MarkDirty(DirtyWeapons)
	return true
}

// Reload refills count rounds (-1 for a full clip) of the weapon in slot
func (p *Player) Reload(slot, count int) {
	w := &p.Weapons[slot]
	if w.Empty() || w.ClipSize == 0 {
		return
	}
	if count < 0 {
		count = w.ClipSize
	}
	ammo := min(w.Ammo+count, w.ClipSize)
	if ammo != w.Ammo {
		w.Ammo = ammo
		p.MarkDirty(DirtyWeapons)
	}
}

// Die marks the player dead. killer is 0 for environmental deaths.
func (p *Player) Die(killer uint32) {
	p.Dead = true
	p.Health = 0
	p.KilledBy = killer
	p.Input = Input{}
	p.Vel = geom.Vec2{}
	p.MarkDirty(DirtyFull | DirtyHealth)
}

// Revive brings a dead player back at pos with full health
func (p *Player) Revive(pos geom.Vec2) {
	p.Dead = false
	p.KilledBy = 0
	p.Health = PlayerMaxHealth
	p.Boost = 0
	p.TimeAlive = 0
	p.fireCD = 0
	p.Weapons = DefaultLoadout()
	p.CurWeapon = SlotPrimary
	p.Input = Input{}
	p.Pos = pos
	p.MarkDirty(DirtyFull | DirtyHealth | DirtyBoost | DirtyWeapons)
}

// Equip replaces the loadout and selects the first gun, or the first filled slot
func (p *Player) Equip(w [WeaponSlots]Weapon) {
	p.Weapons = w
	p.CurWeapon = SlotMelee
	for i := range p.Weapons {
		if !p.Weapons[i].Empty() && p.Weapons[i].Speed > 0 {
			p.CurWeapon = i
			break
		}
	}
	p.MarkDirty(DirtyWeapons)
}

// AddItem puts count items of kind into the inventory
func (p *Player) AddItem(kind string, count int) {
	if count <= 0 {
		return
	}
	p.Inventory[kind] += count
	p.MarkDirty(DirtyInventory)
}
