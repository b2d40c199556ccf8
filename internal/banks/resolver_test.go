package banks

import "testing"

func TestResolveExact(t *testing.T) {
	m, ok := Resolve("Guaranty Trust Bank")
	if !ok {
		t.Fatal("expected a match")
	}
	if !m.Exact() {
		t.Errorf("expected exact match, distance %d", m.Distance)
	}
	if m.Bank.Code != "058" {
		t.Errorf("wrong bank resolved: %+v", m.Bank)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	m, ok := Resolve("  zenith bank  ")
	if !ok || !m.Exact() {
		t.Fatalf("expected exact match, got %+v ok=%v", m, ok)
	}
	if m.Bank.Code != "057" {
		t.Errorf("wrong bank resolved: %+v", m.Bank)
	}
}

func TestResolveTypo(t *testing.T) {
	m, ok := Resolve("guarranty trust bank")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Bank.Code != "058" {
		t.Errorf("wrong bank resolved: %+v", m.Bank)
	}
	if m.Distance == 0 || m.Distance > DefaultMaxDistance {
		t.Errorf("expected a fuzzy match within threshold, distance %d", m.Distance)
	}
}

func TestResolveFarInput(t *testing.T) {
	m, ok := Resolve("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	if !ok {
		t.Fatal("resolver always returns the closest entry for non-blank input")
	}
	if m.Distance <= DefaultMaxDistance {
		t.Errorf("garbage input should exceed threshold, distance %d", m.Distance)
	}
}

func TestResolveBlank(t *testing.T) {
	if _, ok := Resolve("   "); ok {
		t.Error("blank input must not match")
	}
}

func TestByCode(t *testing.T) {
	b, ok := ByCode("033")
	if !ok {
		t.Fatal("expected a bank for code 033")
	}
	if b.Name != "United Bank For Africa" {
		t.Errorf("unexpected bank: %+v", b)
	}
	if _, ok := ByCode("000"); ok {
		t.Error("unknown code must not resolve")
	}
}
