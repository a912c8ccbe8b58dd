package centrilized_auctions

import (
	"errors"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"

	"github.com/dedis/p2p_auctions/identity"
	"github.com/dedis/p2p_auctions/rpc"
)

// DirectoryProtocol collects the service address of every node of a tree.
// The announce goes down the tree, the entries come back up and only the
// root writes the result to Entries.
type DirectoryProtocol struct {
	*onet.TreeNodeInstance
	// Service is the key of the local service. A node without it only
	// forwards the entries of its children.
	Service kyber.Point
	Entries chan []Entry
}

// Check that *DirectoryProtocol implements onet.ProtocolInstance
var _ onet.ProtocolInstance = (*DirectoryProtocol)(nil)

// NewProtocol initialises the structure for use in one round
func NewProtocol(n *onet.TreeNodeInstance) (onet.ProtocolInstance, error) {
	t := &DirectoryProtocol{
		TreeNodeInstance: n,
		Entries:          make(chan []Entry, 1),
	}
	for _, handler := range []interface{}{t.HandleAnnounce, t.HandleReply} {
		if err := t.RegisterHandler(handler); err != nil {
			return nil, errors.New("couldn't register handler: " + err.Error())
		}
	}
	return t, nil
}

// Start sends the Announce-message to all children
func (p *DirectoryProtocol) Start() error {
	log.Lvl3("Starting DirectoryProtocol")
	return p.HandleAnnounce(StructAnnounce{p.TreeNode(),
		Announce{p.ServerIdentity().String()}})
}

// HandleAnnounce forwards the announce, leaves start replying.
func (p *DirectoryProtocol) HandleAnnounce(msg StructAnnounce) error {
	log.Lvl3("Directory requested by", msg.Requester)
	if !p.IsLeaf() {
		return p.SendToChildren(&msg.Announce)
	}
	return p.HandleReply(nil)
}

// HandleReply adds the local entry to the ones of the children and sends
// them up the tree.
func (p *DirectoryProtocol) HandleReply(replies []StructReply) error {
	defer p.Done()

	var entries []Entry
	if p.Service != nil {
		entries = append(entries, Entry{
			Service: identity.Address(p.Service),
			Server:  p.ServerIdentity(),
		})
	}
	for _, r := range replies {
		entries = append(entries, r.Entries...)
	}
	log.Lvl3(p.ServerIdentity().Address, "knows", len(entries), "services")

	if !p.IsRoot() {
		return p.SendTo(p.Parent(), &Reply{entries})
	}
	p.Entries <- entries
	return nil
}

// AddEntries routes every entry in dir.
func AddEntries(dir *rpc.Directory, entries []Entry) error {
	for _, e := range entries {
		service, err := identity.ParseAddress(e.Service)
		if err != nil {
			return err
		}
		dir.Add(service, e.Server)
	}
	return nil
}
