package engine

import (
	"reflect"
	"testing"
)

// --- Resolve Tests ---

func TestResolve_NoPlaceholders(t *testing.T) {
	payloads := []map[string]any{
		nil,
		{},
		{"user": map[string]any{"email": "a@b.com"}},
	}
	values := []string{"", "plain text", "{ not a token }", "{{", "}}", "a { b } c"}

	for _, p := range payloads {
		for _, v := range values {
			if got := Resolve(v, p); got != v {
				t.Errorf("Resolve(%q) = %q, want unchanged", v, got)
			}
		}
	}
}

func TestResolve_NonStringPassThrough(t *testing.T) {
	payload := map[string]any{"a": "x"}

	tests := []any{nil, 42, 3.5, true, map[string]any{"k": "{{a}}"}, []any{"{{a}}"}}
	for _, v := range tests {
		if got := Resolve(v, payload); !reflect.DeepEqual(got, v) {
			t.Errorf("Resolve(%v) = %v, want unchanged", v, got)
		}
	}
}

func TestResolve_PayloadPrefixOptional(t *testing.T) {
	payload := map[string]any{"a": map[string]any{"b": "x"}}

	if got := Resolve("{{payload.a.b}}", payload); got != "x" {
		t.Errorf("with prefix: got %q, want %q", got, "x")
	}
	if got := Resolve("{{a.b}}", payload); got != "x" {
		t.Errorf("without prefix: got %q, want %q", got, "x")
	}
}

func TestResolve_MissingPath(t *testing.T) {
	payloads := []map[string]any{
		nil,
		{},
		{"missing": "string, not an object"},
		{"missing": map[string]any{"other": 1}},
		{"missing": nil},
	}

	for _, p := range payloads {
		if got := Resolve("{{missing.path}}", p); got != "" {
			t.Errorf("payload %v: got %q, want empty string", p, got)
		}
	}
}

func TestResolveString(t *testing.T) {
	payload := map[string]any{
		"user": map[string]any{
			"name":  "Ann",
			"email": "ann@example.com",
			"age":   float64(30),
			"admin": true,
			"tags":  []any{"a", "b"},
		},
		"items": []any{
			map[string]any{"id": float64(7)},
		},
		"empty": nil,
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"single", "{{user.name}}", "Ann"},
		{"embedded", "Hello, {{user.name}}!", "Hello, Ann!"},
		{"multiple", "{{user.name}} <{{payload.user.email}}>", "Ann <ann@example.com>"},
		{"number", "age={{user.age}}", "age=30"},
		{"bool", "{{user.admin}}", "true"},
		{"array as json", "{{user.tags}}", `["a","b"]`},
		{"array index", "{{items.0.id}}", "7"},
		{"index out of range", "{{items.5.id}}", ""},
		{"null leaf", "[{{empty}}]", "[]"},
		{"whitespace in token", "{{ user.name }}", "Ann"},
		{"missing in middle", "a{{nope}}b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveString(tt.template, payload)
			if got != tt.expected {
				t.Errorf("ResolveString(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	payload := map[string]any{"a": map[string]any{"b": "x"}}
	before := map[string]any{"a": map[string]any{"b": "x"}}

	first := Resolve("{{a.b}}-{{a}}", payload)
	second := Resolve("{{a.b}}-{{a}}", payload)

	if first != second {
		t.Errorf("results differ: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(payload, before) {
		t.Error("payload must not be modified")
	}
}

// --- ResolveConfig Tests ---

func TestResolveConfig_KeysPreserved(t *testing.T) {
	payload := map[string]any{"user": map[string]any{"email": "a@b.com"}}
	config := map[string]any{
		"to":      "{{payload.user.email}}",
		"subject": "Hi",
		"body":    "Welcome",
		"retries": float64(3),
	}

	resolved := ResolveConfig(config, payload)

	if len(resolved) != len(config) {
		t.Fatalf("expected %d keys, got %d", len(config), len(resolved))
	}
	if resolved["to"] != "a@b.com" {
		t.Errorf("to = %v, want a@b.com", resolved["to"])
	}
	if resolved["subject"] != "Hi" {
		t.Errorf("subject = %v, want Hi", resolved["subject"])
	}
	if resolved["retries"] != float64(3) {
		t.Errorf("retries = %v, want 3", resolved["retries"])
	}

	// Исходный config не меняется
	if config["to"] != "{{payload.user.email}}" {
		t.Error("source config must not be modified")
	}
}

func TestResolveConfig_Nil(t *testing.T) {
	resolved := ResolveConfig(nil, nil)
	if resolved == nil {
		t.Fatal("resolved config should not be nil")
	}
	if len(resolved) != 0 {
		t.Errorf("expected empty map, got %v", resolved)
	}
}

// --- Lookup Tests ---

func TestLookup(t *testing.T) {
	payload := map[string]any{
		"a": map[string]any{"b": "x"},
		"n": nil,
	}

	if v, ok := Lookup(payload, "a.b"); !ok || v != "x" {
		t.Errorf("Lookup(a.b) = %v, %v", v, ok)
	}
	if v, ok := Lookup(payload, "payload"); !ok || !reflect.DeepEqual(v, payload) {
		t.Errorf("Lookup(payload) should return the whole payload, got %v, %v", v, ok)
	}
	if v, ok := Lookup(payload, "n"); !ok || v != nil {
		t.Errorf("Lookup(n) = %v, %v; want nil, true", v, ok)
	}
	if _, ok := Lookup(payload, "n.x"); ok {
		t.Error("walking through nil should fail")
	}
	if _, ok := Lookup(nil, "a"); ok {
		t.Error("lookup in nil payload should fail")
	}
}

// --- Stringify Tests ---

func TestStringify(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{nil, ""},
		{"s", "s"},
		{true, "true"},
		{float64(1.5), "1.5"},
		{float64(100), "100"},
		{42, "42"},
		{int64(-7), "-7"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		if got := Stringify(tt.value); got != tt.expected {
			t.Errorf("Stringify(%v) = %q, want %q", tt.value, got, tt.expected)
		}
	}
}
