package gas

import "math"

// AmountFunc returns the damage of one tick for a player that has spent
// secondsInZone inside the gas
type AmountFunc func(id uint32, base, secondsInZone float64) float64

// DamageTracker accrues time spent in the gas per player and emits one damage
// tick per whole second. Leaving the gas resets the accrual.
type DamageTracker struct {
	seconds map[uint32]float64
}

// NewDamageTracker creates an empty tracker
func NewDamageTracker() *DamageTracker {
	return &DamageTracker{seconds: make(map[uint32]float64)}
}

// Update advances the accrual of one player. inGas is evaluated by the caller
// against the zone's current shape; apply is invoked once per damage tick.
func (d *DamageTracker) Update(id uint32, inGas bool, dt, base float64, amount AmountFunc, apply func(float64)) {
	if !inGas {
		delete(d.seconds, id)
		return
	}
	before := d.seconds[id]
	after := before + dt
	d.seconds[id] = after

	ticks := int(math.Floor(after) - math.Floor(before))
	for i := 1; i <= ticks; i++ {
		at := math.Floor(before) + float64(i)
		dmg := base
		if amount != nil {
			dmg = amount(id, base, at)
		}
		apply(dmg)
	}
}

// Seconds returns the current accrual for a player
func (d *DamageTracker) Seconds(id uint32) float64 { return d.seconds[id] }

// Forget drops a player's accrual
func (d *DamageTracker) Forget(id uint32) { delete(d.seconds, id) }
