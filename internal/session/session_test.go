package session

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/arthasyou/quantification/pkg/types"
)

func TestCredentialStoreInsertGetDelete(t *testing.T) {
	t.Parallel()

	cs := NewCredentialStore()
	cs.Insert(types.Credentials{UserID: "u1", Key: "k", Secret: "s"})

	got, ok := cs.Get("u1")
	if !ok || got.Key != "k" || got.Secret != "s" {
		t.Errorf("Get(\"u1\") = (%+v, %v), want key/secret populated", got, ok)
	}

	cs.Delete("u1")
	if _, ok := cs.Get("u1"); ok {
		t.Error("Get after Delete still found credentials")
	}
}

func TestAddBalanceDoesNotPersist(t *testing.T) {
	t.Parallel()

	ps := NewProfileStore()
	ps.Insert(types.Profile{UserID: "u1", AgentID: "a1", Balance: decimal.NewFromInt(100)})

	newBal, ok := ps.AddBalance("u1", decimal.NewFromInt(50))
	if !ok {
		t.Fatal("AddBalance reported user not found")
	}
	if !newBal.Equal(decimal.NewFromInt(150)) {
		t.Errorf("AddBalance returned %v, want 150", newBal)
	}

	// the store itself must NOT reflect the update — this is the
	// preserved non-atomic bug, not a test bug.
	stored, _ := ps.Get("u1")
	if !stored.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored balance = %v, want unchanged 100 (non-atomic update not preserved)", stored.Balance)
	}
}

func TestSubBalanceDoesNotPersist(t *testing.T) {
	t.Parallel()

	ps := NewProfileStore()
	ps.Insert(types.Profile{UserID: "u1", AgentID: "a1", Balance: decimal.NewFromInt(100)})

	newBal, ok := ps.SubBalance("u1", decimal.NewFromInt(30))
	if !ok {
		t.Fatal("SubBalance reported user not found")
	}
	if !newBal.Equal(decimal.NewFromInt(70)) {
		t.Errorf("SubBalance returned %v, want 70", newBal)
	}

	stored, _ := ps.Get("u1")
	if !stored.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stored balance = %v, want unchanged 100 (non-atomic update not preserved)", stored.Balance)
	}
}

func TestAddBalanceUnknownUser(t *testing.T) {
	t.Parallel()

	ps := NewProfileStore()
	if _, ok := ps.AddBalance("ghost", decimal.NewFromInt(1)); ok {
		t.Error("AddBalance on unknown user returned ok=true")
	}
}
