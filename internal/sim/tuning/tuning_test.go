package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.AutoAttackPeriod() != 1500*time.Millisecond {
		t.Fatalf("auto-attack period = %v", d.AutoAttackPeriod())
	}
	if d.SkillPeriod() != 3*time.Second {
		t.Fatalf("skill period = %v", d.SkillPeriod())
	}
	if d.HeartbeatTimeout() != 60*time.Second {
		t.Fatalf("heartbeat timeout = %v", d.HeartbeatTimeout())
	}
	if d.MatchDuration() != 300*time.Second {
		t.Fatalf("match duration = %v", d.MatchDuration())
	}
	if d.Movement.LagTolerance != 2.0 {
		t.Fatalf("lag tolerance = %v", d.Movement.LagTolerance)
	}
	if d.AntiCheat.MaxActionsPerSecond != 10 || d.AntiCheat.AutoKickThreshold != 10 || d.AntiCheat.SuspiciousThreshold != 5 {
		t.Fatalf("anti-cheat defaults: %+v", d.AntiCheat)
	}
	sum := d.Scoring.CombatWeight + d.Scoring.ExplorationWeight + d.Scoring.SurvivalWeight
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("scoring weights do not sum to 1: %v", sum)
	}
}

func TestLoad_SparseFileBackfills(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("auto_attack_tick_ms: 500\ncombat:\n  cooldown_ms: 500\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tun, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tun.AutoAttackTickMs != 500 {
		t.Fatalf("auto_attack_tick_ms = %d", tun.AutoAttackTickMs)
	}
	if tun.Combat.CooldownMs != 500 {
		t.Fatalf("cooldown_ms = %d", tun.Combat.CooldownMs)
	}
	// Unset fields come from defaults.
	if tun.SkillTickMs != 3000 || tun.Items.PickupRange != 30 {
		t.Fatalf("backfill missing: skill=%d pickup=%v", tun.SkillTickMs, tun.Items.PickupRange)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
