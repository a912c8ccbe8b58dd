package rpc

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/network"

	"github.com/dedis/p2p_auctions/identity"
)

// ErrUnknownPeer is returned by a Resolver that does not know a key.
var ErrUnknownPeer = errors.New("no route to public key")

// Resolver finds the network endpoint serving a public key.
type Resolver interface {
	Resolve(service kyber.Point) (*network.ServerIdentity, error)
}

// Descriptor is the public part of a node, written to a file so that
// clients can reach it. It holds no secret.
type Descriptor struct {
	// Service is the address callers use.
	Service string
	// Transport is the public key of the onet server hosting the service.
	Transport   string
	Address     network.Address
	URL         string
	Description string
}

// ReadDescriptor reads a descriptor written by WriteDescriptor.
func ReadDescriptor(path string) (*Descriptor, error) {
	d := &Descriptor{}
	if _, err := toml.DecodeFile(path, d); err != nil {
		return nil, fmt.Errorf("reading descriptor %s: %w", path, err)
	}
	if d.Service == "" || d.Transport == "" || d.Address == "" {
		return nil, fmt.Errorf("descriptor %s is incomplete", path)
	}
	return d, nil
}

// WriteDescriptor stores d at path, replacing any earlier content.
func WriteDescriptor(path string, d *Descriptor) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ServerIdentity returns the onet identity the descriptor points to.
func (d *Descriptor) ServerIdentity() (*network.ServerIdentity, error) {
	pub, err := identity.ParseAddress(d.Transport)
	if err != nil {
		return nil, err
	}
	si := network.NewServerIdentity(pub, d.Address)
	si.URL = d.URL
	si.Description = d.Description
	return si, nil
}

// Directory is a Resolver built from descriptors or explicit entries.
type Directory struct {
	sync.RWMutex
	entries map[string]*network.ServerIdentity
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]*network.ServerIdentity)}
}

// LoadDirectory returns a directory with the descriptors found at paths.
func LoadDirectory(paths ...string) (*Directory, error) {
	dir := NewDirectory()
	for _, path := range paths {
		d, err := ReadDescriptor(path)
		if err != nil {
			return nil, err
		}
		if err := dir.AddDescriptor(d); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// Add routes service to si.
func (d *Directory) Add(service kyber.Point, si *network.ServerIdentity) {
	d.Lock()
	d.entries[identity.Address(service)] = si
	d.Unlock()
}

// AddDescriptor routes the service of desc.
func (d *Directory) AddDescriptor(desc *Descriptor) error {
	service, err := identity.ParseAddress(desc.Service)
	if err != nil {
		return err
	}
	si, err := desc.ServerIdentity()
	if err != nil {
		return err
	}
	d.Add(service, si)
	return nil
}

// Resolve implements Resolver.
func (d *Directory) Resolve(service kyber.Point) (*network.ServerIdentity, error) {
	d.RLock()
	defer d.RUnlock()
	si, ok := d.entries[identity.Address(service)]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownPeer, identity.Address(service))
	}
	return si, nil
}
