// Package pinger issues single reachability probes against one
// endpoint. The preferred transport is an ICMP echo; when raw and
// datagram ICMP sockets are both unavailable (no privileges), a TCP
// connect to the DNS port substitutes.
package pinger

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// dnsPort is the port the TCP fallback probe connects to. Every server
// in the catalogue is a DNS resolver, so a listener is expected there.
const dnsPort = 53

const maxPacketSize = 1500

var payload = []byte("gamedns")

// Result is the outcome of one probe attempt. RTT is meaningful only
// when OK is true. A failed attempt is normal data, never an error.
type Result struct {
	OK  bool
	RTT time.Duration
}

// Sampler issues probes against a single prepared endpoint.
// Implementations are not safe for concurrent use; each server's probe
// sequence owns its own Sampler.
type Sampler interface {
	// Probe sends one probe and waits up to timeout for the reply.
	Probe(ctx context.Context, timeout time.Duration) Result
	Close() error
}

// Factory creates a Sampler for an endpoint address. An error is a
// per-server fatal condition (malformed address, no usable socket).
type Factory func(address string) (Sampler, error)

// New prepares a Sampler for the given IP literal. It tries a raw ICMP
// socket first, then an unprivileged datagram ICMP socket, and falls
// back to TCP connect probes when neither can be opened.
func New(address string) (Sampler, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return nil, fmt.Errorf("invalid probe address %q: %w", address, err)
	}
	if s, err := newICMPSampler(ip); err == nil {
		return s, nil
	}
	return newTCPSampler(ip, dnsPort), nil
}

type icmpSampler struct {
	conn      *icmp.PacketConn
	dst       net.Addr
	proto     int
	echoType  icmp.Type
	replyType icmp.Type
	raw       bool
	id        int
	seq       uint16
}

func newICMPSampler(ip netip.Addr) (*icmpSampler, error) {
	rawNetwork := "ip4:icmp"
	dgramNetwork := "udp4"
	proto := 1
	echoType := icmp.Type(ipv4.ICMPTypeEcho)
	replyType := icmp.Type(ipv4.ICMPTypeEchoReply)
	if ip.Is6() {
		rawNetwork = "ip6:ipv6-icmp"
		dgramNetwork = "udp6"
		proto = 58
		echoType = icmp.Type(ipv6.ICMPTypeEchoRequest)
		replyType = icmp.Type(ipv6.ICMPTypeEchoReply)
	}

	netIP := net.IP(ip.AsSlice())
	raw := true
	var dst net.Addr = &net.IPAddr{IP: netIP}
	conn, err := icmp.ListenPacket(rawNetwork, "")
	if err != nil {
		// Datagram ICMP sockets work without CAP_NET_RAW on hosts with
		// ping_group_range configured. Replies arrive as UDP addrs.
		conn, err = icmp.ListenPacket(dgramNetwork, "")
		if err != nil {
			return nil, err
		}
		raw = false
		dst = &net.UDPAddr{IP: netIP}
	}

	return &icmpSampler{
		conn:      conn,
		dst:       dst,
		proto:     proto,
		echoType:  echoType,
		replyType: replyType,
		raw:       raw,
		id:        rand.Intn(0xffff),
	}, nil
}

func (s *icmpSampler) Probe(ctx context.Context, timeout time.Duration) Result {
	if ctx.Err() != nil {
		return Result{}
	}
	s.seq++
	msg := icmp.Message{
		Type: s.echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   s.id,
			Seq:  int(s.seq),
			Data: payload,
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return Result{}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if _, err := s.conn.WriteTo(wire, s.dst); err != nil {
		return Result{}
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Result{}
	}

	buf := make([]byte, maxPacketSize)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			return Result{}
		}
		if !s.peerMatches(peer) {
			continue
		}
		parsed, err := icmp.ParseMessage(s.proto, buf[:n])
		if err != nil {
			continue
		}
		if parsed.Type != s.replyType {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok || echo.Seq != int(s.seq) {
			continue
		}
		// The kernel rewrites the echo ID on datagram sockets, so it is
		// only checked on raw sockets.
		if s.raw && echo.ID != s.id {
			continue
		}
		return Result{OK: true, RTT: time.Since(start)}
	}
}

func (s *icmpSampler) peerMatches(peer net.Addr) bool {
	var peerIP net.IP
	switch addr := peer.(type) {
	case *net.IPAddr:
		peerIP = addr.IP
	case *net.UDPAddr:
		peerIP = addr.IP
	default:
		return false
	}
	var want net.IP
	switch addr := s.dst.(type) {
	case *net.IPAddr:
		want = addr.IP
	case *net.UDPAddr:
		want = addr.IP
	}
	return peerIP == nil || want == nil || peerIP.Equal(want)
}

func (s *icmpSampler) Close() error {
	return s.conn.Close()
}

type tcpSampler struct {
	addr string
}

func newTCPSampler(ip netip.Addr, port int) *tcpSampler {
	return &tcpSampler{addr: net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port))}
}

func (s *tcpSampler) Probe(ctx context.Context, timeout time.Duration) Result {
	if ctx.Err() != nil {
		return Result{}
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", s.addr)
	if err != nil {
		return Result{}
	}
	rtt := time.Since(start)
	_ = conn.Close()
	return Result{OK: true, RTT: rtt}
}

func (s *tcpSampler) Close() error { return nil }
