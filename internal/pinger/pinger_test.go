package pinger

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"
)

func TestNewRejectsMalformedAddress(t *testing.T) {
	for _, addr := range []string{"", "dns.example.com", "999.1.1.1", "8.8.8.8:53"} {
		if _, err := New(addr); err == nil {
			t.Fatalf("New(%q) should fail", addr)
		}
	}
}

func TestTCPSamplerAgainstLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s := newTCPSampler(netip.MustParseAddr("127.0.0.1"), port)
	defer s.Close()

	res := s.Probe(context.Background(), time.Second)
	if !res.OK {
		t.Fatal("probe against live listener should succeed")
	}
	if res.RTT <= 0 || res.RTT > time.Second {
		t.Fatalf("implausible RTT: %v", res.RTT)
	}
}

func TestTCPSamplerFailureIsData(t *testing.T) {
	// Port from the discard range with nothing listening: connection
	// refused must come back as a failed sample, not an error.
	s := newTCPSampler(netip.MustParseAddr("127.0.0.1"), 9)
	defer s.Close()

	res := s.Probe(context.Background(), 200*time.Millisecond)
	if res.OK {
		t.Skip("something is listening on 127.0.0.1:9")
	}
	if res.RTT != 0 {
		t.Fatalf("failed probe reported RTT %v", res.RTT)
	}
}

func TestProbeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTCPSampler(netip.MustParseAddr("127.0.0.1"), 9)
	if res := s.Probe(ctx, time.Second); res.OK {
		t.Fatal("probe on cancelled context should fail")
	}
}
