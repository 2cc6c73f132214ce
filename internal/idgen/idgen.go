// Package idgen issues time-ordered int64 ids for new locations.
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Ids use a 53-bit snowflake layout so they survive JSON clients that hold
// numbers as IEEE doubles: 41 bits of milliseconds since Epoch, NodeBits of
// node and StepBits of per-millisecond sequence.
const (
	Epoch    int64 = 1735689600000 // 2025-01-01T00:00:00Z
	NodeBits uint8 = 5
	StepBits uint8 = 7

	// MaxNode is the largest node number accepted by NewSnowflake.
	MaxNode int64 = 1<<NodeBits - 1

	// MaxID is the largest integer a float64 represents exactly (2^53-1).
	MaxID int64 = 1<<53 - 1
)

// The snowflake package keeps its layout in package variables read by
// NewNode and by ID decoding, so it is configured once per process.
var layout sync.Once

func configure() {
	layout.Do(func() {
		snowflake.Epoch = Epoch
		snowflake.NodeBits = NodeBits
		snowflake.StepBits = StepBits
		// NewNode recomputes the package's decode masks from the new layout.
		_, _ = snowflake.NewNode(0)
	})
}

// Snowflake issues ids from a single snowflake node. Ids from one node are
// unique and increase over time; run every replica with a distinct node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator for the given node number (0-MaxNode).
func NewSnowflake(node int64) (*Snowflake, error) {
	configure()
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("idgen.NewSnowflake: node %d: %w", node, err)
	}
	return &Snowflake{node: n}, nil
}

// NextID returns the next id. Safe for concurrent use.
func (s *Snowflake) NextID() int64 {
	return s.node.Generate().Int64()
}

// Node returns the node number encoded in id.
func Node(id int64) int64 {
	configure()
	return snowflake.ParseInt64(id).Node()
}
