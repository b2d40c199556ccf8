package domain

import "testing"

func TestCanTransitionLinearChain(t *testing.T) {
	chain := []Status{
		StatusPending,
		StatusWalletConnected,
		StatusApprovalConfirmed,
		StatusDepositConfirmed,
		StatusCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(chain[i], chain[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", chain[i], chain[i+1])
		}
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	cases := [][2]Status{
		{StatusPending, StatusApprovalConfirmed},
		{StatusPending, StatusDepositConfirmed},
		{StatusPending, StatusCompleted},
		{StatusWalletConnected, StatusDepositConfirmed},
		{StatusWalletConnected, StatusCompleted},
		{StatusApprovalConfirmed, StatusCompleted},
	}
	for _, c := range cases {
		if CanTransition(c[0], c[1]) {
			t.Errorf("expected %s -> %s to be rejected", c[0], c[1])
		}
	}
}

func TestCanTransitionRejectsBackwards(t *testing.T) {
	cases := [][2]Status{
		{StatusWalletConnected, StatusPending},
		{StatusApprovalConfirmed, StatusWalletConnected},
		{StatusDepositConfirmed, StatusApprovalConfirmed},
	}
	for _, c := range cases {
		if CanTransition(c[0], c[1]) {
			t.Errorf("expected %s -> %s to be rejected", c[0], c[1])
		}
	}
}

func TestCanTransitionErrored(t *testing.T) {
	for _, from := range []Status{
		StatusPending, StatusWalletConnected, StatusApprovalConfirmed, StatusDepositConfirmed,
	} {
		if !CanTransition(from, StatusErrored) {
			t.Errorf("expected %s -> errored to be allowed", from)
		}
	}
	if CanTransition(StatusCompleted, StatusErrored) {
		t.Error("completed must be terminal")
	}
	if CanTransition(StatusErrored, StatusErrored) {
		t.Error("errored must be terminal")
	}
	if CanTransition(StatusErrored, StatusPending) {
		t.Error("no edges out of errored")
	}
	if CanTransition(StatusCompleted, StatusPending) {
		t.Error("no edges out of completed")
	}
}

func TestNetworkCatalog(t *testing.T) {
	if got := len(Networks()); got != 4 {
		t.Fatalf("expected 4 networks, got %d", got)
	}
	n, ok := NetworkByName("base")
	if !ok {
		t.Fatal("BASE lookup failed")
	}
	if n.ChainID != 8453 || n.Decimals != 6 {
		t.Errorf("unexpected BASE catalog entry: %+v", n)
	}
	if _, ok := NetworkByName("SOLANA"); ok {
		t.Error("unsupported network must not resolve")
	}
}
