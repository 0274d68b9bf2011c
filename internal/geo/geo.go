// Package geo annotates resolver addresses with country and network
// information from a MaxMind database, when one is configured.
package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver looks up locations in an mmdb file. A nil Resolver is valid
// and reports nothing, so callers need no feature flag.
type Resolver struct {
	reader *maxminddb.Reader
}

// Location describes where a resolver address is registered.
type Location struct {
	CountryCode string
	ASN         uint
	ASOrg       string
}

// Open loads the database at path.
func Open(path string) (*Resolver, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{reader: reader}, nil
}

func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Lookup returns the location of an IP literal. The second return is
// false when no resolver is configured or the address is unknown.
func (r *Resolver) Lookup(address string) (Location, bool) {
	if r == nil || r.reader == nil {
		return Location{}, false
	}
	ip := net.ParseIP(address)
	if ip == nil {
		return Location{}, false
	}

	var record struct {
		Country struct {
			IsoCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
		AutonomousSystemNumber       uint   `maxminddb:"autonomous_system_number"`
		AutonomousSystemOrganization string `maxminddb:"autonomous_system_organization"`
	}
	if err := r.reader.Lookup(ip, &record); err != nil {
		return Location{}, false
	}

	loc := Location{
		CountryCode: record.Country.IsoCode,
		ASN:         record.AutonomousSystemNumber,
		ASOrg:       record.AutonomousSystemOrganization,
	}
	if loc.CountryCode == "" && loc.ASN == 0 && loc.ASOrg == "" {
		return Location{}, false
	}
	return loc, true
}
