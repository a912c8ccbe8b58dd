package centrilized_auctions

import (
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/network"
)

// ProtocolName can be used from other packages to refer to this protocol.
const ProtocolName = "AuctionDirectory"

func init() {
	network.RegisterMessage(Announce{})
	network.RegisterMessage(Reply{})
	_, _ = onet.GlobalProtocolRegister(ProtocolName, NewProtocol)
}

// Announce asks the children for the auction services below them.
type Announce struct {
	Requester string
}

// StructAnnounce just contains Announce and the data necessary to identify
// and process the message in the onet framework.
type StructAnnounce struct {
	*onet.TreeNode
	Announce
}

// Entry is the auction service found on one node.
type Entry struct {
	// Service is the address of the service, in hex.
	Service string
	Server  *network.ServerIdentity
}

// Reply returns the entries of a subtree.
type Reply struct {
	Entries []Entry
}

// StructReply just contains Reply and the data necessary to identify and
// process the message in the onet framework.
type StructReply struct {
	*onet.TreeNode
	Reply
}
