package transport

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowmesh/ferrors"
)

// Role identifies which side of a handshake a node answers as.
type Role string

const (
	RoleMaster Role = "master"
	RoleWorker Role = "worker"
)

// BeaconRequest is the handshake probe a master sends to a candidate
// node before trusting it — the connect/verify step.
type BeaconRequest struct {
	Cookie string `json:"cookie"`
}

// BeaconReply is what a node answers a BeaconRequest with, identifying
// itself and confirming (or refusing) the cookie.
type BeaconReply struct {
	NodeName    string `json:"node_name"`
	Role        Role   `json:"role"`
	CookieMatch bool   `json:"cookie_match"`
}

// BeaconSubject is the fixed NATS subject every node answers beacon
// probes on, scoped by node name so a master can target one specific
// candidate.
func BeaconSubject(nodeName string) string {
	return "flowmesh.beacon." + nodeName
}

// Beacon answers handshake probes on behalf of the local node. A
// worker's runtime registers one under RoleWorker; a master registers
// one under RoleMaster so workers can verify they're dialing a real
// master, not an impostor.
type Beacon struct {
	conn     *nats.Conn
	nodeName string
	role     Role
	cookie   string
	sub      *nats.Subscription
}

// NewBeacon builds a Beacon that has not yet started answering probes.
func NewBeacon(conn *nats.Conn, nodeName string, role Role, cookie string) *Beacon {
	return &Beacon{conn: conn, nodeName: nodeName, role: role, cookie: cookie}
}

// Listen starts answering BeaconRequests on this node's beacon subject.
func (b *Beacon) Listen() error {
	sub, err := b.conn.Subscribe(BeaconSubject(b.nodeName), func(msg *nats.Msg) {
		var req BeaconRequest
		if err := Decode(msg.Data, &req); err != nil {
			return
		}
		reply := BeaconReply{
			NodeName:    b.nodeName,
			Role:        b.role,
			CookieMatch: req.Cookie == b.cookie,
		}
		data, err := Encode(reply)
		if err != nil {
			return
		}
		_ = msg.Respond(data)
	})
	if err != nil {
		return err
	}
	b.sub = sub
	return nil
}

// Stop unsubscribes the beacon.
func (b *Beacon) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

// Probe sends a BeaconRequest to remoteNode and validates the reply:
// wrong_cookie(node) if the cookie didn't match, no_valid_worker(node)
// if the responder isn't playing wantRole, timeout(node) if nothing
// answered within deadline.
func Probe(ctx context.Context, conn *nats.Conn, remoteNode, cookie string, wantRole Role, deadline time.Duration) (BeaconReply, error) {
	node := ferrors.NodeID{Name: remoteNode}

	req, err := Encode(BeaconRequest{Cookie: cookie})
	if err != nil {
		return BeaconReply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	msg, err := conn.RequestWithContext(ctx, BeaconSubject(remoteNode), req)
	if err != nil {
		return BeaconReply{}, ferrors.Timeout(node)
	}

	var reply BeaconReply
	if err := Decode(msg.Data, &reply); err != nil {
		return BeaconReply{}, ferrors.Timeout(node)
	}

	if !reply.CookieMatch {
		return BeaconReply{}, ferrors.WrongCookie(node)
	}
	if reply.Role != wantRole {
		return BeaconReply{}, ferrors.NoValidWorker(node)
	}
	return reply, nil
}
