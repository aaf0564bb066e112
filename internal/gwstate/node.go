package gwstate

import "time"

// Node is a subordinate device with its own identity, independent of any
// particular socket (§3). At most one live connection exists per NodeID;
// re-registration replaces the previous ConnID.
type Node struct {
	NodeID       string
	DisplayName  string
	Platform     string
	Version      string
	Capabilities []string
	Commands     []string
	Permissions  []string
	PathSnapshot string
	RemoteIP     string
	ConnID       string
	RegisteredAt time.Time
}

// NodeRegistry tracks live nodes keyed by NodeID.
type NodeRegistry struct {
	guarded[string, *Node]
}

// NewNodeRegistry constructs an empty NodeRegistry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{newGuarded[string, *Node]()}
}

// Register installs or replaces the live node for n.NodeID.
func (r *NodeRegistry) Register(n *Node) {
	r.Set(n.NodeID, n)
}

// ByConnID finds the node currently bound to connID, if any.
func (r *NodeRegistry) ByConnID(connID string) (*Node, bool) {
	var found *Node
	r.Range(func(_ string, n *Node) bool {
		if n.ConnID == connID {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}
