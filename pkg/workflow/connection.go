package workflow

import (
	"errors"
	"fmt"
)

// Connection is a directed edge from one node's output to another node's input
type Connection struct {
	ID     ConnectionID `json:"id" yaml:"id"`
	Source NodeID       `json:"source" yaml:"source"`
	Target NodeID       `json:"target" yaml:"target"`
}

// Validate checks if the connection is valid
func (c *Connection) Validate() error {
	if c.ID == "" {
		return errors.New("connection: empty connection ID")
	}
	if c.Source == "" {
		return errors.New("connection: empty source node")
	}
	if c.Target == "" {
		return errors.New("connection: empty target node")
	}
	if c.Source == c.Target {
		return fmt.Errorf("connection: self-loop detected (node %s to itself)", c.Source)
	}
	return nil
}

// Touches reports whether the connection has nodeID as either endpoint
func (c *Connection) Touches(nodeID NodeID) bool {
	return c.Source == nodeID || c.Target == nodeID
}
