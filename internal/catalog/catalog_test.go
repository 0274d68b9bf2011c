package catalog

import (
	"strings"
	"testing"
)

func TestBuiltinCatalogue(t *testing.T) {
	servers := Builtin()
	if len(servers) < 14 {
		t.Fatalf("builtin catalogue has %d servers, want at least 14", len(servers))
	}
	seen := make(map[string]struct{})
	for _, srv := range servers {
		if srv.IsCustom {
			t.Fatalf("builtin server %s marked custom", srv.Name)
		}
		if _, dup := seen[srv.Name]; dup {
			t.Fatalf("duplicate builtin name: %s", srv.Name)
		}
		seen[srv.Name] = struct{}{}
	}

	// Builtin must hand out copies, not the shared backing array.
	servers[0].Name = "mutated"
	if Builtin()[0].Name == "mutated" {
		t.Fatal("Builtin returned shared slice")
	}
}

func TestMergeCustomServers(t *testing.T) {
	servers, err := Merge([]Server{{Name: "Lab Resolver", Address: " 10.0.0.53 "}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	last := servers[len(servers)-1]
	if last.Name != "Lab Resolver" || last.Address != "10.0.0.53" || !last.IsCustom {
		t.Fatalf("unexpected merged entry: %+v", last)
	}
	if len(servers) != len(Builtin())+1 {
		t.Fatalf("merged catalogue has %d entries", len(servers))
	}
}

func TestMergeRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name   string
		custom []Server
		want   string
	}{
		{"empty name", []Server{{Address: "10.0.0.1"}}, "no name"},
		{"bad address", []Server{{Name: "X", Address: "not-an-ip"}}, "invalid address"},
		{"duplicate name", []Server{{Name: "Google Primary", Address: "10.0.0.1"}}, "duplicate server name"},
		{"duplicate address", []Server{{Name: "X", Address: "8.8.8.8"}}, "duplicate server address"},
		{"duplicate within custom", []Server{
			{Name: "A", Address: "10.0.0.1"},
			{Name: "A", Address: "10.0.0.2"},
		}, "duplicate server name"},
	}
	for _, tc := range cases {
		if _, err := Merge(tc.custom); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got err %v, want %q", tc.name, err, tc.want)
		}
	}
}

func TestProvider(t *testing.T) {
	if got := (Server{Name: "Google Primary"}).Provider(); got != "Google" {
		t.Fatalf("Provider() = %q, want Google", got)
	}
	if got := (Server{Name: "Level3"}).Provider(); got != "Level3" {
		t.Fatalf("Provider() = %q, want Level3", got)
	}
}
