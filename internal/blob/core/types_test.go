package core

import (
	"errors"
	"testing"
)

func TestValidateKey(t *testing.T) {
	valid := map[string]string{
		"graphs/current.json":     "graphs/current.json",
		" reports/r1.json ":       "reports/r1.json",
		"reports//r1.json":        "reports/r1.json",
		"reports/./r1.json":       "reports/r1.json",
		"reports/..data/r1.json":  "reports/..data/r1.json",
		"graphs/current.info.bak": "graphs/current.info.bak",
	}
	for in, want := range valid {
		got, err := ValidateKey(in)
		if err != nil || got != want {
			t.Fatalf("ValidateKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"", " ", "/graphs/current.json", "../x", "reports/../../x", "graphs/current" + SidecarSuffix} {
		if _, err := ValidateKey(in); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("ValidateKey(%q): expected ErrInvalidKey, got %v", in, err)
		}
	}
}

func TestCloneMetadata(t *testing.T) {
	if CloneMetadata(nil) != nil {
		t.Fatal("nil metadata must stay nil")
	}
	in := map[string]string{"graph_version": "v1"}
	out := CloneMetadata(in)
	out["graph_version"] = "v2"
	if in["graph_version"] != "v1" {
		t.Fatal("clone shares storage with input")
	}
}
