package rpc

import (
	"errors"
	"fmt"
	"sync"

	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/identity"
)

// Server opens CallRequests addressed to its key pair, runs them through a
// Dispatcher and seals the outcome for the caller.
type Server struct {
	*Dispatcher

	mu   sync.RWMutex
	pair *identity.KeyPair
}

// NewServer returns a Server answering for pair.
func NewServer(pair *identity.KeyPair) *Server {
	return &Server{Dispatcher: NewDispatcher(), pair: pair}
}

// SetKeyPair replaces the identity of the server.
func (s *Server) SetKeyPair(pair *identity.KeyPair) {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
}

// KeyPair returns the identity of the server.
func (s *Server) KeyPair() *identity.KeyPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Serve answers one call. Failures of the called method are part of the
// sealed reply. An error is only returned when the request cannot be
// answered at all, which the caller sees as a transport failure.
func (s *Server) Serve(req *CallRequest) (*CallReply, error) {
	s.Seal()
	pair := s.KeyPair()
	if pair == nil {
		return nil, errors.New("service has no identity")
	}

	client := identity.Suite.Point()
	if err := client.UnmarshalBinary(req.Client); err != nil {
		return nil, fmt.Errorf("invalid client key: %v", err)
	}
	var env envelope
	if err := open(pair.Private, req.Payload, &env); err != nil {
		return nil, fmt.Errorf("cannot open request: %v", err)
	}

	log.Lvlf3("%s calls %s", identity.Address(client), env.Method)
	var out outcome
	body, err := s.Dispatch(env.Method, env.Body)
	if err != nil {
		rerr := err.(*Error)
		out = outcome{Code: rerr.Code, Message: rerr.Message}
	} else {
		out = outcome{Body: body}
	}

	sealed, err := seal(client, &out)
	if err != nil {
		return nil, fmt.Errorf("cannot seal reply: %v", err)
	}
	sig, err := sign(pair.Private, sealed)
	if err != nil {
		return nil, fmt.Errorf("cannot sign reply: %v", err)
	}
	return &CallReply{Payload: sealed, Signature: sig}, nil
}
