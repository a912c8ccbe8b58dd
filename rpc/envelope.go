package rpc

import (
	"errors"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/encrypt/ecies"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"

	"github.com/dedis/p2p_auctions/identity"
)

func init() {
	network.RegisterMessages(&CallRequest{}, &CallReply{})
}

// CallRequest is what travels to the server. Payload is an envelope
// encrypted to the public key of the service.
type CallRequest struct {
	// Client is the marshalled public key the reply is encrypted to.
	Client  []byte
	Payload []byte
}

// CallReply carries an outcome encrypted to the caller, signed by the
// service key.
type CallReply struct {
	Payload   []byte
	Signature []byte
}

// envelope is the plain content of a CallRequest.
type envelope struct {
	Method string
	Body   []byte
}

// outcome is the plain content of a CallReply. Code is 0 for success.
type outcome struct {
	Code    int
	Message string
	Body    []byte
}

func seal(to kyber.Point, msg interface{}) ([]byte, error) {
	buf, err := protobuf.Encode(msg)
	if err != nil {
		return nil, err
	}
	return ecies.Encrypt(identity.Suite, to, buf, identity.Suite.Hash)
}

func open(priv kyber.Scalar, sealed []byte, msg interface{}) error {
	buf, err := ecies.Decrypt(identity.Suite, priv, sealed, identity.Suite.Hash)
	if err != nil {
		return err
	}
	return protobuf.Decode(buf, msg)
}

func sign(priv kyber.Scalar, payload []byte) ([]byte, error) {
	return schnorr.Sign(identity.Suite, priv, payload)
}

func verify(pub kyber.Point, reply *CallReply) error {
	if len(reply.Signature) == 0 {
		return errors.New("reply is not signed")
	}
	return schnorr.Verify(identity.Suite, pub, reply.Payload, reply.Signature)
}
