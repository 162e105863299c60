package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	if c.Len() == 0 {
		t.Fatalf("no builtin cards")
	}
	card, ok := c.Lookup("llama-3.1-70b")
	if !ok {
		t.Fatalf("llama-3.1-70b missing")
	}
	if card.Shape.ParamsBillions != 70 || card.Shape.HiddenSize != 8192 || card.Shape.NumLayers != 80 {
		t.Fatalf("unexpected shape: %+v", card.Shape)
	}
}

func TestCardsSortedByID(t *testing.T) {
	cards := Builtin().Cards()
	for i := 1; i < len(cards); i++ {
		if cards[i-1].ID >= cards[i].ID {
			t.Fatalf("not sorted at %d: %s >= %s", i, cards[i-1].ID, cards[i].ID)
		}
	}
}

func TestLoadYAMLMergesOverBuiltins(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "catalog.yaml", `
- id: internal-13b
  name: Internal 13B
  shape:
    params_billions: 13
    hidden_size: 5120
    num_layers: 40
- id: llama-3.1-8b
  name: Llama 3.1 8B (patched)
  shape:
    params_billions: 8
    hidden_size: 4096
    num_layers: 32
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.Lookup("internal-13b"); !ok {
		t.Fatalf("file card missing")
	}
	card, _ := c.Lookup("llama-3.1-8b")
	if card.Name != "Llama 3.1 8B (patched)" {
		t.Fatalf("override not applied: %+v", card)
	}
	if c.Len() != Builtin().Len()+1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "catalog.json", `[{"id":"x-7b","name":"X 7B","shape":{"params_billions":7,"hidden_size":4096,"num_layers":32}}]`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.Lookup("x-7b"); !ok {
		t.Fatalf("x-7b missing")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "catalog.txt", "nope")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	bad := writeTempFile(t, d, "bad.yaml", "- id: no-shape\n  name: broken\n")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected shape validation error")
	}
	missing := writeTempFile(t, d, "noid.yaml", "- name: anonymous\n  shape: {params_billions: 1, hidden_size: 1, num_layers: 1}\n")
	if _, err := Load(missing); err == nil {
		t.Fatalf("expected missing id error")
	}
}
