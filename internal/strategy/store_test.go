package strategy

import (
	"testing"

	"github.com/arthasyou/quantification/pkg/types"
)

func TestGetSpecFailsForUnknownUser(t *testing.T) {
	t.Parallel()

	s := New()
	if _, err := s.GetSpec("unknown-user", 1); err == nil {
		t.Fatal("expected error for user with no stored config")
	}
}

func TestGetSpecUnknownID(t *testing.T) {
	t.Parallel()

	s := New()
	s.Insert("u1", types.DefaultStrategyConfig())
	if _, err := s.GetSpec("u1", 3); err == nil {
		t.Fatal("expected error for strategy_id 3")
	}
}

func TestGetSpecClonesNotShares(t *testing.T) {
	t.Parallel()

	s := New()
	s.Insert("u1", types.DefaultStrategyConfig())

	tiers, _ := s.GetSpec("u1", 1)
	tiers[0].Adjustment = 999

	tiers2, _ := s.GetSpec("u1", 1)
	if tiers2[0].Adjustment == 999 {
		t.Fatal("GetSpec returned a shared slice, mutation leaked")
	}
}

func TestUpdateReplacesConfig(t *testing.T) {
	t.Parallel()

	s := New()
	s.Insert("u1", types.DefaultStrategyConfig())

	custom := types.StrategyConfig{S1: []types.Tier{{Min: 0, Max: 1, Adjustment: 0.5}}}
	s.Update("u1", custom)

	tiers, err := s.GetSpec("u1", 1)
	if err != nil {
		t.Fatalf("GetSpec error: %v", err)
	}
	if len(tiers) != 1 || tiers[0].Adjustment != 0.5 {
		t.Errorf("GetSpec after Update = %+v, want single custom tier", tiers)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := New()
	s.Insert("u1", types.DefaultStrategyConfig())
	s.Delete("u1")

	if _, ok := s.Get("u1"); ok {
		t.Error("Get after Delete still found config")
	}
}
