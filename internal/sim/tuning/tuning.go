package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	AutoAttackTickMs  int `yaml:"auto_attack_tick_ms"`
	SkillTickMs       int `yaml:"skill_tick_ms"`
	HousekeepingMs    int `yaml:"housekeeping_ms"`
	HeartbeatTimeoutS int `yaml:"heartbeat_timeout_s"`
	MatchDurationS    int `yaml:"match_duration_s"`
	MatchReapDelayS   int `yaml:"match_reap_delay_s"`

	World     World     `yaml:"world"`
	Movement  Movement  `yaml:"movement"`
	Combat    Combat    `yaml:"combat"`
	Items     Items     `yaml:"items"`
	AntiCheat AntiCheat `yaml:"anti_cheat"`
	Scoring   Scoring   `yaml:"scoring"`
}

type World struct {
	// BoundaryR bounds player positions to [-BoundaryR, BoundaryR] units
	// on both axes.
	BoundaryR float64 `yaml:"boundary_r"`
	// CellSize is the width of one world-grid cell in units.
	CellSize float64 `yaml:"cell_size"`
	RoomSize int     `yaml:"room_size"`
}

type Movement struct {
	MaxSpeed     float64 `yaml:"max_speed"` // units per second
	LagTolerance float64 `yaml:"lag_tolerance"`
}

type Combat struct {
	CooldownMs  int     `yaml:"cooldown_ms"`
	Range       float64 `yaml:"range"`
	BaseDamage  int     `yaml:"base_damage"`
	MinDamage   int     `yaml:"min_damage"`
	MaxDamage   int     `yaml:"max_damage"`
	JitterRange int     `yaml:"jitter_range"`
	MaxHealth   int     `yaml:"max_health"`
}

type Items struct {
	PickupRange    float64 `yaml:"pickup_range"`
	InventorySlots int     `yaml:"inventory_slots"`
}

type AntiCheat struct {
	ActionWindowMs      int `yaml:"action_window_ms"`
	MaxActionsPerSecond int `yaml:"max_actions_per_second"`
	SuspiciousThreshold int `yaml:"suspicious_threshold"`
	AutoKickThreshold   int `yaml:"auto_kick_threshold"`
}

type Scoring struct {
	CombatWeight      float64 `yaml:"combat_weight"`
	ExplorationWeight float64 `yaml:"exploration_weight"`
	SurvivalWeight    float64 `yaml:"survival_weight"`

	KillPoints        float64 `yaml:"kill_points"`
	KDRatioPoints     float64 `yaml:"kd_ratio_points"`
	DamagePointsPer   float64 `yaml:"damage_points_per"`
	RoomPoints        float64 `yaml:"room_points"`
	ItemPoints        float64 `yaml:"item_points"`
	AliveFinishBonus  float64 `yaml:"alive_finish_bonus"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.fillZero()
	return t, nil
}

// Defaults returns the tuning used when no tuning.yaml is present. Every
// loaded tuning is backfilled from these so a sparse file stays usable.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:   "1.0",
		AutoAttackTickMs:  1500,
		SkillTickMs:       3000,
		HousekeepingMs:    30_000,
		HeartbeatTimeoutS: 60,
		MatchDurationS:    300,
		MatchReapDelayS:   30,
		World: World{
			BoundaryR: 1000,
			CellSize:  100,
			RoomSize:  20,
		},
		Movement: Movement{
			MaxSpeed:     50,
			LagTolerance: 2.0,
		},
		Combat: Combat{
			CooldownMs:  1500,
			Range:       40,
			BaseDamage:  10,
			MinDamage:   1,
			MaxDamage:   25,
			JitterRange: 4,
			MaxHealth:   100,
		},
		Items: Items{
			PickupRange:    30,
			InventorySlots: 20,
		},
		AntiCheat: AntiCheat{
			ActionWindowMs:      10_000,
			MaxActionsPerSecond: 10,
			SuspiciousThreshold: 5,
			AutoKickThreshold:   10,
		},
		Scoring: Scoring{
			CombatWeight:      0.4,
			ExplorationWeight: 0.3,
			SurvivalWeight:    0.3,
			KillPoints:        20,
			KDRatioPoints:     10,
			DamagePointsPer:   0.05,
			RoomPoints:        4,
			ItemPoints:        5,
			AliveFinishBonus:  25,
		},
	}
}

func (t *Tuning) fillZero() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.AutoAttackTickMs <= 0 {
		t.AutoAttackTickMs = d.AutoAttackTickMs
	}
	if t.SkillTickMs <= 0 {
		t.SkillTickMs = d.SkillTickMs
	}
	if t.HousekeepingMs <= 0 {
		t.HousekeepingMs = d.HousekeepingMs
	}
	if t.HeartbeatTimeoutS <= 0 {
		t.HeartbeatTimeoutS = d.HeartbeatTimeoutS
	}
	if t.MatchDurationS <= 0 {
		t.MatchDurationS = d.MatchDurationS
	}
	if t.MatchReapDelayS <= 0 {
		t.MatchReapDelayS = d.MatchReapDelayS
	}
	if t.World.BoundaryR <= 0 {
		t.World.BoundaryR = d.World.BoundaryR
	}
	if t.World.CellSize <= 0 {
		t.World.CellSize = d.World.CellSize
	}
	if t.World.RoomSize <= 0 {
		t.World.RoomSize = d.World.RoomSize
	}
	if t.Movement.MaxSpeed <= 0 {
		t.Movement.MaxSpeed = d.Movement.MaxSpeed
	}
	if t.Movement.LagTolerance <= 0 {
		t.Movement.LagTolerance = d.Movement.LagTolerance
	}
	if t.Combat.CooldownMs <= 0 {
		t.Combat.CooldownMs = d.Combat.CooldownMs
	}
	if t.Combat.Range <= 0 {
		t.Combat.Range = d.Combat.Range
	}
	if t.Combat.BaseDamage <= 0 {
		t.Combat.BaseDamage = d.Combat.BaseDamage
	}
	if t.Combat.MinDamage <= 0 {
		t.Combat.MinDamage = d.Combat.MinDamage
	}
	if t.Combat.MaxDamage <= 0 {
		t.Combat.MaxDamage = d.Combat.MaxDamage
	}
	if t.Combat.JitterRange <= 0 {
		t.Combat.JitterRange = d.Combat.JitterRange
	}
	if t.Combat.MaxHealth <= 0 {
		t.Combat.MaxHealth = d.Combat.MaxHealth
	}
	if t.Items.PickupRange <= 0 {
		t.Items.PickupRange = d.Items.PickupRange
	}
	if t.Items.InventorySlots <= 0 {
		t.Items.InventorySlots = d.Items.InventorySlots
	}
	if t.AntiCheat.ActionWindowMs <= 0 {
		t.AntiCheat.ActionWindowMs = d.AntiCheat.ActionWindowMs
	}
	if t.AntiCheat.MaxActionsPerSecond <= 0 {
		t.AntiCheat.MaxActionsPerSecond = d.AntiCheat.MaxActionsPerSecond
	}
	if t.AntiCheat.SuspiciousThreshold <= 0 {
		t.AntiCheat.SuspiciousThreshold = d.AntiCheat.SuspiciousThreshold
	}
	if t.AntiCheat.AutoKickThreshold <= 0 {
		t.AntiCheat.AutoKickThreshold = d.AntiCheat.AutoKickThreshold
	}
	if t.Scoring.CombatWeight <= 0 {
		t.Scoring = d.Scoring
	}
}

func (t Tuning) AutoAttackPeriod() time.Duration {
	return time.Duration(t.AutoAttackTickMs) * time.Millisecond
}

func (t Tuning) SkillPeriod() time.Duration {
	return time.Duration(t.SkillTickMs) * time.Millisecond
}

func (t Tuning) HousekeepingPeriod() time.Duration {
	return time.Duration(t.HousekeepingMs) * time.Millisecond
}

func (t Tuning) HeartbeatTimeout() time.Duration {
	return time.Duration(t.HeartbeatTimeoutS) * time.Second
}

func (t Tuning) MatchDuration() time.Duration {
	return time.Duration(t.MatchDurationS) * time.Second
}

func (t Tuning) MatchReapDelay() time.Duration {
	return time.Duration(t.MatchReapDelayS) * time.Second
}

func (t Tuning) AttackCooldown() time.Duration {
	return time.Duration(t.Combat.CooldownMs) * time.Millisecond
}

func (t Tuning) ActionWindow() time.Duration {
	return time.Duration(t.AntiCheat.ActionWindowMs) * time.Millisecond
}
