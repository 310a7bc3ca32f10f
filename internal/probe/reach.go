package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/abedinzadeh/dashmon.online/internal/safenet"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// reachProbe tests plain reachability for devices with no URL and no port.
// It tries a single ICMP echo first; on failure or tool unavailability it
// falls back to TCP connects on 443 then 80, taking the first success.
// Many devices expose no application port and ICMP is often blocked or
// unavailable without privileges, so neither method alone is trusted to
// declare a device dead.
func (e *Executor) reachProbe(ctx context.Context, host string) *Outcome {
	if err := e.echo(ctx, host, e.reachTimeout, e.allowPrivate); err == nil {
		// Bare ICMP success does not measure latency.
		return &Outcome{
			Status:     storage.StatusUp,
			PacketLoss: 0,
			Detail:     map[string]any{"method": "icmp"},
		}
	}

	var last *Outcome
	for _, port := range e.fallbackPorts {
		out := e.tcpProbe(ctx, host, port)
		out.Detail["method"] = "tcp-fallback"
		if out.Status == storage.StatusUp {
			return out
		}
		last = out
	}
	if last == nil {
		last = &Outcome{
			Status:     storage.StatusDown,
			PacketLoss: 100,
			Detail:     map[string]any{"error": "no fallback ports configured"},
		}
	}
	return last
}

// icmpEcho sends one echo request and waits for the matching reply.
// It prefers a raw ICMP socket and falls back to the unprivileged
// udp4/udp6 variant.
func icmpEcho(ctx context.Context, host string, timeout time.Duration, allowPrivate bool) error {
	dst, isIPv6 := resolveEchoTarget(ctx, host)
	if dst == nil {
		return fmt.Errorf("no IPv4 or IPv6 address found for %q", host)
	}
	if !allowPrivate && safenet.IsPrivateIP(dst) {
		return fmt.Errorf("blocked: %s is a private/reserved address", dst)
	}

	conn, err := listenEcho(isIPv6)
	if err != nil {
		return fmt.Errorf("icmp listen: %w", err)
	}
	defer conn.Close()

	if err := sendEcho(conn, dst, isIPv6); err != nil {
		return fmt.Errorf("icmp send: %w", err)
	}
	return awaitEchoReply(conn, timeout, isIPv6)
}

func resolveEchoTarget(ctx context.Context, host string) (net.IP, bool) {
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", host); err == nil && len(addrs) > 0 {
		return addrs[0], false
	}
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip6", host); err == nil && len(addrs) > 0 {
		return addrs[0], true
	}
	return nil, false
}

func listenEcho(isIPv6 bool) (*icmp.PacketConn, error) {
	if isIPv6 {
		conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
		if err != nil {
			conn, err = icmp.ListenPacket("udp6", "::")
		}
		return conn, err
	}
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	}
	return conn, err
}

func sendEcho(conn *icmp.PacketConn, dst net.IP, isIPv6 bool) error {
	var msgType icmp.Type = ipv4.ICMPTypeEcho
	if isIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	}

	msg := icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("dashmon-ping"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	var dstAddr net.Addr = &net.IPAddr{IP: dst}
	switch conn.LocalAddr().Network() {
	case "udp4", "udp6":
		dstAddr = &net.UDPAddr{IP: dst}
	}
	_, err = conn.WriteTo(wb, dstAddr)
	return err
}

func awaitEchoReply(conn *icmp.PacketConn, timeout time.Duration, isIPv6 bool) error {
	conn.SetReadDeadline(time.Now().Add(timeout))
	rb := make([]byte, 1500)
	n, _, err := conn.ReadFrom(rb)
	if err != nil {
		return fmt.Errorf("icmp receive: %w", err)
	}

	proto := 1 // ICMPv4
	if isIPv6 {
		proto = 58
	}
	rm, err := icmp.ParseMessage(proto, rb[:n])
	if err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}
	if rm.Type != ipv4.ICMPTypeEchoReply && rm.Type != ipv6.ICMPTypeEchoReply {
		return fmt.Errorf("unexpected ICMP type: %v", rm.Type)
	}
	return nil
}
