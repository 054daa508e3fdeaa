// Package authority is the single gate for player-initiated state change.
// Client-reported values are never trusted: positions, damage, and item
// effects are recomputed here and either applied or rejected with a code.
// All methods are computation-only and must be called from the owning
// match's goroutine.
package authority

import (
	"math/rand"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/state"
	"dropzone.gg/internal/sim/tuning"
)

type Engine struct {
	tun     tuning.Tuning
	catalog *catalogs.ItemCatalog

	// jitter keeps a given match's damage stream reproducible.
	jitter *rand.Rand

	// traversable reports whether the world cell at (cx, cy) can be
	// entered. Injected by the match so terrain caching stays there.
	traversable func(cx, cy int) bool

	actions    map[string][]time.Time
	violations map[string]*violationLog
}

func New(tun tuning.Tuning, catalog *catalogs.ItemCatalog, seed int64, traversable func(cx, cy int) bool) *Engine {
	return &Engine{
		tun:         tun,
		catalog:     catalog,
		jitter:      rand.New(rand.NewSource(seed)),
		traversable: traversable,
		actions:     map[string][]time.Time{},
		violations:  map[string]*violationLog{},
	}
}

// MoveResult carries the authoritative position: the accepted target on
// success, the last known valid position otherwise.
type MoveResult struct {
	Accepted bool
	Pos      state.Vec2
	Reason   string
}

func (e *Engine) ValidateMovement(p *state.PlayerState, to state.Vec2, now time.Time) MoveResult {
	reject := func(code string) MoveResult {
		return MoveResult{Pos: p.Pos, Reason: code}
	}
	if !p.Alive {
		return reject(protocol.ErrDead)
	}
	r := e.tun.World.BoundaryR
	if to.X < -r || to.X > r || to.Y < -r || to.Y > r {
		return reject(protocol.ErrOutOfBounds)
	}

	elapsed := time.Second
	if !p.LastMoveAt.IsZero() {
		elapsed = now.Sub(p.LastMoveAt)
		if elapsed < 50*time.Millisecond {
			elapsed = 50 * time.Millisecond
		}
	}
	maxDist := e.tun.Movement.MaxSpeed * elapsed.Seconds() * e.tun.Movement.LagTolerance
	if p.Pos.Dist(to) > maxDist {
		e.recordViolation(p.ID, ViolationSpeed, now, "")
		return reject(protocol.ErrTooFast)
	}

	cell := state.CellFor(to, e.tun.World.CellSize)
	if e.traversable != nil && !e.traversable(cell[0], cell[1]) {
		return reject(protocol.ErrBlocked)
	}

	p.SetPos(to, e.tun.World.CellSize)
	p.LastMoveAt = now
	return MoveResult{Accepted: true, Pos: to}
}

// CombatOutcome is the server-computed result of an attack. Damage never
// comes from the client.
type CombatOutcome struct {
	Accepted     bool
	Reason       string
	AttackerID   string
	TargetID     string
	Damage       int
	TargetHealth int
	TargetDied   bool
}

func (e *Engine) ValidateCombat(attacker, target *state.PlayerState, now time.Time) CombatOutcome {
	reject := func(code string) CombatOutcome {
		return CombatOutcome{Reason: code}
	}
	if attacker == nil || target == nil {
		return reject(protocol.ErrInvalidTarget)
	}
	out := CombatOutcome{AttackerID: attacker.ID, TargetID: target.ID}
	if !attacker.Alive {
		out.Reason = protocol.ErrDead
		return out
	}
	if !target.Alive || attacker.ID == target.ID {
		out.Reason = protocol.ErrInvalidTarget
		return out
	}
	if !attacker.LastAttackAt.IsZero() && now.Sub(attacker.LastAttackAt) < e.tun.AttackCooldown() {
		out.Reason = protocol.ErrCooldown
		return out
	}
	if attacker.Pos.Dist(target.Pos) > e.tun.Combat.Range {
		out.Reason = protocol.ErrOutOfRange
		return out
	}

	dmg := e.tun.Combat.BaseDamage + e.attackStat(attacker) - e.defenseStat(target)
	if jr := e.tun.Combat.JitterRange; jr > 0 {
		dmg += e.jitter.Intn(2*jr+1) - jr
	}
	if dmg < e.tun.Combat.MinDamage {
		dmg = e.tun.Combat.MinDamage
	}
	if dmg > e.tun.Combat.MaxDamage {
		dmg = e.tun.Combat.MaxDamage
	}

	attacker.LastAttackAt = now
	attacker.LastCombatAt = now
	attacker.InCombat = true
	target.LastCombatAt = now
	target.InCombat = true

	health := target.ApplyHealthDelta(-dmg)
	out.Accepted = true
	out.Damage = dmg
	out.TargetHealth = health
	if health == 0 {
		target.Alive = false
		target.DiedAt = now
		attacker.Kills++
		out.TargetDied = true
	}
	return out
}

func (e *Engine) attackStat(p *state.PlayerState) int {
	if s, _ := p.Inventory.EquippedIn(state.SlotWeapon); s != nil {
		if tpl, ok := e.catalog.ByID[s.TemplateID]; ok {
			return tpl.Damage
		}
	}
	return 0
}

func (e *Engine) defenseStat(p *state.PlayerState) int {
	if s, _ := p.Inventory.EquippedIn(state.SlotArmor); s != nil {
		if tpl, ok := e.catalog.ByID[s.TemplateID]; ok {
			return tpl.Defense
		}
	}
	return 0
}

// RemovePlayer drops all advisory history for a departed player.
func (e *Engine) RemovePlayer(playerID string) {
	delete(e.actions, playerID)
	delete(e.violations, playerID)
}
