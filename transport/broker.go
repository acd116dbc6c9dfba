package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/flowmesh/ferrors"
)

// Broker turns a logical "call this node" or "call all of these nodes"
// into NATS request/reply, one call per target, each bounded by its own
// deadline. limiter, when set, throttles how fast On issues new
// requests — the same role a rate.Limiter plays gating query processing
// upstream of a broker's own fan-out, moved here since this is where
// calls actually leave the node.
type Broker struct {
	conn    *nats.Conn
	limiter *rate.Limiter
}

// NewBroker wraps conn with no outgoing rate limit.
func NewBroker(conn *nats.Conn) *Broker {
	return &Broker{conn: conn}
}

// NewBrokerWithLimit wraps conn, limiting outgoing calls to rps per
// second with a burst of up to burst calls.
func NewBrokerWithLimit(conn *nats.Conn, rps float64, burst int) *Broker {
	return &Broker{conn: conn, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// On sends tag/args to exactly one target node and decodes its reply
// into result. A missing or unresponsive node surfaces as
// ferrors.Timeout(node). If the broker was built with a rate limit, On
// blocks until a token is available or ctx is done before sending.
func (b *Broker) On(ctx context.Context, node, subject, tag string, args any, deadline time.Duration, result any) error {
	env, err := NewEnvelope(tag, args)
	if err != nil {
		return err
	}
	data, err := Encode(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return ferrors.Timeout(ferrors.NodeID{Name: node})
		}
	}

	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return ferrors.Timeout(ferrors.NodeID{Name: node})
	}

	var reply Envelope
	if err := Decode(msg.Data, &reply); err != nil {
		return fmt.Errorf("broker: malformed reply from %s: %w", node, err)
	}
	if reply.Tag == "error" {
		var message string
		_ = reply.Decode(&message)
		return fmt.Errorf("broker: %s: %s", node, message)
	}
	if result != nil {
		return reply.Decode(result)
	}
	return nil
}

// Target is one node a Broker.OnAll call fans out to.
type Target struct {
	Node    string
	Subject string
}

// OnAll sends tag/args to every target concurrently, each bounded by
// the same deadline, and collects the per-target outcome. Partial
// failure is not itself an error here — the caller (typically the
// deploy package) decides whether partial success is acceptable and
// raises ferrors.DeploymentPartial if not.
func (b *Broker) OnAll(ctx context.Context, targets []Target, tag string, args any, deadline time.Duration) map[string]error {
	results := make(map[string]error, len(targets))
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)

	for _, target := range targets {
		target := target
		group.Go(func() error {
			err := b.On(gctx, target.Node, target.Subject, tag, args, deadline, nil)
			mu.Lock()
			results[target.Node] = err
			mu.Unlock()
			return nil // never abort the group: every target gets its own outcome
		})
	}
	_ = group.Wait()
	return results
}
