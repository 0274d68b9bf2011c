// Package catalog holds the set of DNS resolver endpoints a benchmark
// run probes: a fixed list of well-known public resolvers plus any
// user-configured custom entries.
package catalog

import (
	"fmt"
	"net/netip"
	"strings"
)

// Server identifies one probe target. Immutable once loaded; the
// position in the catalogue is the final ranking tie-breaker.
type Server struct {
	Name     string
	Address  string
	IsCustom bool
}

// Provider returns the provider family of the server, derived from the
// first word of its display name. Recommendations prefer a secondary
// from a different provider than the primary.
func (s Server) Provider() string {
	name := strings.TrimSpace(s.Name)
	if idx := strings.IndexByte(name, ' '); idx > 0 {
		return name[:idx]
	}
	return name
}

var builtin = []Server{
	{Name: "Google Primary", Address: "8.8.8.8"},
	{Name: "Google Secondary", Address: "8.8.4.4"},
	{Name: "Cloudflare Primary", Address: "1.1.1.1"},
	{Name: "Cloudflare Secondary", Address: "1.0.0.1"},
	{Name: "Quad9 Primary", Address: "9.9.9.9"},
	{Name: "Quad9 Secondary", Address: "149.112.112.112"},
	{Name: "OpenDNS Primary", Address: "208.67.222.222"},
	{Name: "OpenDNS Secondary", Address: "208.67.220.220"},
	{Name: "Level3", Address: "4.2.2.2"},
	{Name: "Comodo Secure DNS", Address: "8.26.56.26"},
	{Name: "AdGuard DNS", Address: "94.140.14.14"},
	{Name: "CleanBrowsing", Address: "185.228.168.9"},
	{Name: "Alternate DNS", Address: "76.76.19.19"},
	{Name: "NextDNS", Address: "45.90.28.167"},
	{Name: "Norton ConnectSafe", Address: "199.85.126.10"},
}

// Builtin returns a copy of the built-in resolver catalogue.
func Builtin() []Server {
	out := make([]Server, len(builtin))
	copy(out, builtin)
	return out
}

// Merge appends custom servers to the built-in catalogue, validating
// each entry. Duplicate names or addresses are rejected so that a name
// stays unique within a run.
func Merge(custom []Server) ([]Server, error) {
	servers := Builtin()
	seenNames := make(map[string]struct{}, len(servers)+len(custom))
	seenAddrs := make(map[string]struct{}, len(servers)+len(custom))
	for _, srv := range servers {
		seenNames[srv.Name] = struct{}{}
		seenAddrs[srv.Address] = struct{}{}
	}
	for _, srv := range custom {
		srv.Name = strings.TrimSpace(srv.Name)
		srv.Address = strings.TrimSpace(srv.Address)
		if srv.Name == "" {
			return nil, fmt.Errorf("custom server with address %q has no name", srv.Address)
		}
		addr, err := netip.ParseAddr(srv.Address)
		if err != nil {
			return nil, fmt.Errorf("custom server %s: invalid address %q", srv.Name, srv.Address)
		}
		srv.Address = addr.String()
		if _, exists := seenNames[srv.Name]; exists {
			return nil, fmt.Errorf("duplicate server name: %s", srv.Name)
		}
		if _, exists := seenAddrs[srv.Address]; exists {
			return nil, fmt.Errorf("duplicate server address: %s", srv.Address)
		}
		seenNames[srv.Name] = struct{}{}
		seenAddrs[srv.Address] = struct{}{}
		srv.IsCustom = true
		servers = append(servers, srv)
	}
	return servers, nil
}
