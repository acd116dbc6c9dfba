package transport

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowmesh/ferrors"
)

// RegisterMasterRequest is the RPC a master sends a worker to claim it:
// "register me as your master." The worker answers with
// RegisterMasterReply rather than simply acking, since it may already
// have a different master registered.
type RegisterMasterRequest struct {
	Cookie     string `json:"cookie"`
	MasterNode string `json:"master_node"`
}

// RegisterMasterReply is the worker's answer to a RegisterMasterRequest.
// Accepted is false when the cookie didn't match or the worker already
// has a different master registered — a worker accepts at most one
// master registration at a time.
type RegisterMasterReply struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// RegisterMasterSubject is the fixed NATS subject a worker answers
// master-registration requests on, scoped by node name.
func RegisterMasterSubject(nodeName string) string {
	return "flowmesh.register_master." + nodeName
}

// RequestMasterRegistration sends a RegisterMasterRequest to workerNode
// on behalf of masterNode and validates the reply: wrong_cookie(node) or
// already_connected(node) if the worker refused, timeout(node) if
// nothing answered within deadline.
func RequestMasterRegistration(ctx context.Context, conn *nats.Conn, workerNode, cookie, masterNode string, deadline time.Duration) error {
	node := ferrors.NodeID{Name: workerNode}

	req, err := Encode(RegisterMasterRequest{Cookie: cookie, MasterNode: masterNode})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	msg, err := conn.RequestWithContext(ctx, RegisterMasterSubject(workerNode), req)
	if err != nil {
		return ferrors.Timeout(node)
	}

	var reply RegisterMasterReply
	if err := Decode(msg.Data, &reply); err != nil {
		return ferrors.Timeout(node)
	}

	if !reply.Accepted {
		if reply.Reason == reasonWrongCookie {
			return ferrors.WrongCookie(node)
		}
		return ferrors.AlreadyConnected(node)
	}
	return nil
}

const reasonWrongCookie = "wrong_cookie"
