package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_RequiresSVG(t *testing.T) {
	_, err := New(Definition{Name: "broken", Elements: []string{"g"}})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
	if ce.Policy != "broken" {
		t.Errorf("policy = %q, want %q", ce.Policy, "broken")
	}
}

func TestNew_RequiresName(t *testing.T) {
	_, err := New(Definition{Elements: []string{"svg"}})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestBuiltins(t *testing.T) {
	c := NewCatalog()
	for _, name := range []string{Strict, Basic, Advanced} {
		p, err := c.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if !p.AllowsElement("svg") {
			t.Errorf("%s: svg not allowed", name)
		}
		if !p.AllowsAttribute("xmlns") {
			t.Errorf("%s: xmlns not allowed", name)
		}
		if p.AllowsElement("script") {
			t.Errorf("%s: script allowed", name)
		}
	}

	strict, _ := c.Lookup(Strict)
	advanced, _ := c.Lookup(Advanced)
	if strict.AllowsElement("image") {
		t.Error("strict should not allow image")
	}
	if !advanced.AllowsElement("foreignObject") {
		t.Error("advanced should allow foreignObject")
	}
	if strict.AllowsAttribute("href") {
		t.Error("strict should not allow href")
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := NewCatalog().Lookup("paranoid")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestMerge(t *testing.T) {
	base := Definition{Name: "a", Elements: []string{"svg"}, Attributes: []string{"id"}}
	got := Merge(base, Definition{Name: "b", Elements: []string{"g"}})

	if got.Name != "b" {
		t.Errorf("name = %q, want %q", got.Name, "b")
	}
	if len(got.Elements) != 2 {
		t.Errorf("elements = %v, want 2 entries", got.Elements)
	}
	if len(base.Elements) != 1 {
		t.Errorf("base mutated: %v", base.Elements)
	}

	kept := Merge(base, Definition{})
	if kept.Name != "a" {
		t.Errorf("name = %q, want %q", kept.Name, "a")
	}
}

func TestLoadPack(t *testing.T) {
	pack := `
policies:
  - name: brand
    extends: strict
    allowed_elements: [text, tspan]
    allowed_attributes: [font-size]
  - name: brand-plus
    extends: brand
    allowed_elements: [ellipse]
`
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(pack), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	if err := c.LoadPack(path); err != nil {
		t.Fatalf("LoadPack: %v", err)
	}

	p, err := c.Lookup("brand-plus")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	for _, el := range []string{"svg", "rect", "text", "ellipse"} {
		if !p.AllowsElement(el) {
			t.Errorf("brand-plus should allow %s", el)
		}
	}
	if !p.AllowsAttribute("font-size") {
		t.Error("brand-plus should inherit font-size")
	}
	if got := len(c.Names()); got != 5 {
		t.Errorf("names = %d, want 5", got)
	}
}

func TestLoadPack_UnknownParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	content := "policies:\n  - name: x\n    extends: nope\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	err := NewCatalog().LoadPack(path)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}
