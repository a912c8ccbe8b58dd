// Package identity turns the seeds of a keystore.Store into the key pairs a
// node is known by.
package identity

import (
	"errors"
	"fmt"

	"github.com/dedis/p2p_auctions/keystore"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/onet/v3/log"
)

// Names of the seeds used by the binaries.
const (
	TransportSeed = "transport-identity-seed"
	ServiceSeed   = "service-identity-seed"
	ClientSeed    = "client-identity-seed"
)

// Suite is used for every key pair, signature and encryption.
var Suite = edwards25519.NewBlakeSHA256Ed25519()

// ErrProvisioning wraps every failure to establish an identity. A node must
// not start when it sees it.
var ErrProvisioning = errors.New("identity provisioning failed")

// Seeds maps seed names to their values.
type Seeds map[string][]byte

// Provision fetches or creates every named seed.
func Provision(store keystore.Store, names ...string) (Seeds, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no store", ErrProvisioning)
	}
	seeds := make(Seeds, len(names))
	for _, name := range names {
		seed, err := store.GetOrCreate(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProvisioning, name, err)
		}
		if len(seed) != keystore.SeedSize {
			return nil, fmt.Errorf("%w: %s has %d bytes", ErrProvisioning, name, len(seed))
		}
		seeds[name] = seed
	}
	log.Lvl3("Provisioned seeds", names)
	return seeds, nil
}

// KeyPair is a private scalar together with its public point.
type KeyPair struct {
	Public  kyber.Point
	Private kyber.Scalar
}

// NewKeyPair derives the key pair of a seed. The same seed always gives the
// same pair.
func NewKeyPair(seed []byte) (*KeyPair, error) {
	if len(seed) != keystore.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", keystore.SeedSize, len(seed))
	}
	priv := Suite.Scalar().Pick(Suite.XOF(seed))
	return &KeyPair{
		Public:  Suite.Point().Mul(priv, nil),
		Private: priv,
	}, nil
}

// Pair derives the key pair of the seed called name.
func (s Seeds) Pair(name string) (*KeyPair, error) {
	seed, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("seed %s was not provisioned", name)
	}
	return NewKeyPair(seed)
}

// Address is the hex form of the public key, which is what peers dial.
func (kp *KeyPair) Address() string {
	return Address(kp.Public)
}

// Address returns the hex form of a public key.
func Address(pub kyber.Point) string {
	s, err := encoding.PointToStringHex(Suite, pub)
	if err != nil {
		// Marshalling an edwards25519 point cannot fail.
		panic(err)
	}
	return s
}

// ParseAddress reads a public key in the form returned by Address.
func ParseAddress(addr string) (kyber.Point, error) {
	pub, err := encoding.StringHexToPoint(Suite, addr)
	if err != nil {
		return nil, fmt.Errorf("invalid public key %q: %w", addr, err)
	}
	return pub, nil
}
