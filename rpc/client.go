package rpc

import (
	"context"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/protobuf"

	"github.com/dedis/p2p_auctions/identity"
)

// Client calls methods of a service by its public key.
type Client struct {
	*onet.Client
	// Timeout, if positive, bounds each call on top of the deadline of its
	// context.
	Timeout  time.Duration
	pair     *identity.KeyPair
	resolver Resolver
}

// NewClient returns a client for the onet service called serviceName. pair
// is the identity of the caller, replies are encrypted to it.
func NewClient(serviceName string, pair *identity.KeyPair, resolver Resolver) *Client {
	return &Client{
		Client:   onet.NewClient(identity.Suite, serviceName),
		pair:     pair,
		resolver: resolver,
	}
}

// Call sends body to method of the service and waits for its answer.
//
// A failure of the method on the server is returned as an *Error. Anything
// that prevents getting an answer wraps ErrTransport. When ctx ends before
// the answer arrives the call returns, but the server may still have
// executed the method: callers cannot tell the two cases apart. The
// abandoned request keeps its connection until onet gives up on it.
func (c *Client) Call(ctx context.Context, service kyber.Point, method string, body []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, transportError("%s: %v", method, err)
	}
	si, err := c.resolver.Resolve(service)
	if err != nil {
		return nil, transportError("%v", err)
	}
	pub, err := c.pair.Public.MarshalBinary()
	if err != nil {
		return nil, err
	}
	payload, err := seal(service, &envelope{Method: method, Body: body})
	if err != nil {
		return nil, err
	}

	type result struct {
		reply *CallReply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply := &CallReply{}
		err := c.SendProtobuf(si, &CallRequest{Client: pub, Payload: payload}, reply)
		done <- result{reply, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		log.Lvl2("Call", method, "to", si.Address, "abandoned:", ctx.Err())
		return nil, transportError("%s: %v", method, ctx.Err())
	case r = <-done:
	}
	if r.err != nil {
		return nil, transportError("%s to %s: %v", method, si.Address, r.err)
	}
	if err := verify(service, r.reply); err != nil {
		return nil, transportError("reply of %s does not verify: %v", method, err)
	}
	var out outcome
	if err := open(c.pair.Private, r.reply.Payload, &out); err != nil {
		return nil, transportError("cannot open reply of %s: %v", method, err)
	}
	if out.Code != 0 {
		return nil, &Error{Code: out.Code, Message: out.Message}
	}
	return out.Body, nil
}

// Invoke encodes req, calls method and decodes the answer into a Resp.
func Invoke[Resp any](ctx context.Context, c *Client, service kyber.Point, method string, req interface{}) (*Resp, error) {
	body, err := protobuf.Encode(req)
	if err != nil {
		return nil, err
	}
	buf, err := c.Call(ctx, service, method, body)
	if err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := protobuf.Decode(buf, resp); err != nil {
		return nil, &Error{Code: ErrorParse, Message: err.Error()}
	}
	return resp, nil
}

// KeyPair returns the identity of the caller.
func (c *Client) KeyPair() *identity.KeyPair {
	return c.pair
}
