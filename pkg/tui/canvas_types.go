package tui

import "github.com/dshills/aihub/pkg/workflow"

// Node box dimensions in canvas units (terminal cells at zoom 1.0)
const (
	NodeWidth  = 24
	NodeHeight = 5

	// handleWidth is how many columns at each side of a node act as a
	// connection handle: the left side is the input, the right the output
	handleWidth = 2
)

// Point is a client coordinate, relative to the canvas origin on screen
type Point struct {
	X float64
	Y float64
}

// Add returns p + o
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// BoundingBox represents a rectangular area in canvas coordinates
type BoundingBox struct {
	X, Y          float64
	Width, Height float64
}

// Contains checks if a canvas position is within the bounding box
func (bb BoundingBox) Contains(pos workflow.Position) bool {
	return pos.X >= bb.X &&
		pos.X < bb.X+bb.Width &&
		pos.Y >= bb.Y &&
		pos.Y < bb.Y+bb.Height
}

// Intersects checks if two bounding boxes intersect
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	if bb.X >= other.X+other.Width || other.X >= bb.X+bb.Width {
		return false
	}
	if bb.Y >= other.Y+other.Height || other.Y >= bb.Y+bb.Height {
		return false
	}
	return true
}

// nodeBounds returns the box a node occupies on the canvas
func nodeBounds(n *workflow.Node) BoundingBox {
	return BoundingBox{X: n.Position.X, Y: n.Position.Y, Width: NodeWidth, Height: NodeHeight}
}

// outputHandle is the canvas point edges leave a node from
func outputHandle(n *workflow.Node) workflow.Position {
	return workflow.Position{X: n.Position.X + NodeWidth - 1, Y: n.Position.Y + NodeHeight/2}
}

// inputHandle is the canvas point edges enter a node at
func inputHandle(n *workflow.Node) workflow.Position {
	return workflow.Position{X: n.Position.X, Y: n.Position.Y + NodeHeight/2}
}

// ToCanvas converts a client coordinate to canvas coordinates:
// (client - pan) / zoom
func ToCanvas(client, pan Point, zoom float64) workflow.Position {
	if zoom == 0 {
		zoom = 1
	}
	return workflow.Position{
		X: (client.X - pan.X) / zoom,
		Y: (client.Y - pan.Y) / zoom,
	}
}

// ToClient converts canvas coordinates to a client coordinate:
// pos * zoom + pan
func ToClient(pos workflow.Position, pan Point, zoom float64) Point {
	return Point{
		X: pos.X*zoom + pan.X,
		Y: pos.Y*zoom + pan.Y,
	}
}
