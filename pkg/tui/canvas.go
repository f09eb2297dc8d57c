package tui

import (
	"math"

	"github.com/dshills/aihub/pkg/registry"
	"github.com/dshills/aihub/pkg/workflow"
)

// Zoom limits
const (
	MinZoom = 0.25
	MaxZoom = 2.0
)

// recommendedGap is the horizontal space AddRecommended leaves between nodes
const recommendedGap = 8

// Gesture is the pointer gesture the canvas is currently tracking
type Gesture int

const (
	GestureIdle Gesture = iota
	GesturePanning
	GestureNodeDragging
	GestureConnecting
)

func (g Gesture) String() string {
	switch g {
	case GesturePanning:
		return "panning"
	case GestureNodeDragging:
		return "dragging"
	case GestureConnecting:
		return "connecting"
	default:
		return "idle"
	}
}

// PointerEvent is a pointer press, motion or release in client coordinates
type PointerEvent struct {
	X, Y float64
}

func (e PointerEvent) point() Point {
	return Point{X: e.X, Y: e.Y}
}

// ConnectingState tracks a connection being dragged out of an output handle.
// It is cleared on every pointer release.
type ConnectingState struct {
	Source   workflow.NodeID
	Target   workflow.NodeID
	MousePos *Point
}

// HitKind says which part of the canvas a point falls on
type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitInput
	HitOutput
)

// Hit is the result of a hit test
type Hit struct {
	Kind   HitKind
	NodeID workflow.NodeID
}

// Canvas edits a workflow graph through pointer gestures.
// It mutates the workflow it was given directly; there is no buffering.
type Canvas struct {
	wf *workflow.Workflow

	// Pan is the additive offset applied to every node at render time
	Pan  Point
	zoom float64

	gesture     Gesture
	lastPointer Point
	dragNode    workflow.NodeID
	grabOffset  workflow.Position
	dragMoved   bool
	connecting  *ConnectingState

	template *registry.Template
	selected workflow.NodeID

	onSelect func(*workflow.Node)
	onChange func()
}

// NewCanvas creates a canvas editing wf
func NewCanvas(wf *workflow.Workflow) *Canvas {
	return &Canvas{
		wf:   wf,
		zoom: 1.0,
	}
}

// Workflow returns the graph being edited
func (c *Canvas) Workflow() *workflow.Workflow {
	return c.wf
}

// SetWorkflow swaps the graph being edited and clears transient state
func (c *Canvas) SetWorkflow(wf *workflow.Workflow) {
	c.wf = wf
	c.gesture = GestureIdle
	c.connecting = nil
	c.template = nil
	if _, ok := wf.FindNode(c.selected); !ok {
		c.selected = ""
	}
}

// OnSelect registers the callback fired when the selection changes.
// It receives nil when the selection is cleared.
func (c *Canvas) OnSelect(fn func(*workflow.Node)) {
	c.onSelect = fn
}

// OnChange registers the callback fired after every committed graph edit
func (c *Canvas) OnChange(fn func()) {
	c.onChange = fn
}

func (c *Canvas) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Zoom returns the current zoom factor
func (c *Canvas) Zoom() float64 {
	return c.zoom
}

// Gesture returns the gesture in progress
func (c *Canvas) Gesture() Gesture {
	return c.gesture
}

// Connecting returns the in-progress connection, or nil
func (c *Canvas) Connecting() *ConnectingState {
	return c.connecting
}

// StartTemplateDrag marks a palette template as being dragged over the canvas
func (c *Canvas) StartTemplateDrag(t registry.Template) {
	c.template = &t
}

// CancelTemplateDrag abandons a palette drag without dropping
func (c *Canvas) CancelTemplateDrag() {
	c.template = nil
}

// DraggingTemplate reports whether a palette drag is in progress
func (c *Canvas) DraggingTemplate() bool {
	return c.template != nil
}

// Selected returns the selected node, or nil
func (c *Canvas) Selected() *workflow.Node {
	if c.selected == "" {
		return nil
	}
	n, _ := c.wf.FindNode(c.selected)
	return n
}

// Select selects the node with id; an empty id clears the selection
func (c *Canvas) Select(id workflow.NodeID) {
	if id != "" {
		if _, ok := c.wf.FindNode(id); !ok {
			return
		}
	}
	c.selected = id
	if c.onSelect != nil {
		c.onSelect(c.Selected())
	}
}

// SelectNext moves the selection to the next node in graph order
func (c *Canvas) SelectNext(step int) {
	n := len(c.wf.Nodes)
	if n == 0 {
		return
	}
	idx := -1
	for i, node := range c.wf.Nodes {
		if node.ID == c.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		if step < 0 {
			idx = n - 1
		} else {
			idx = 0
		}
	} else {
		idx = ((idx+step)%n + n) % n
	}
	c.Select(c.wf.Nodes[idx].ID)
}

// HitTest reports what lies under a client point.
// Later nodes are drawn on top, so they are tested first.
func (c *Canvas) HitTest(client Point) Hit {
	pos := ToCanvas(client, c.Pan, c.zoom)
	for i := len(c.wf.Nodes) - 1; i >= 0; i-- {
		n := c.wf.Nodes[i]
		if !nodeBounds(n).Contains(pos) {
			continue
		}
		switch {
		case pos.X >= n.Position.X+NodeWidth-handleWidth:
			return Hit{Kind: HitOutput, NodeID: n.ID}
		case pos.X < n.Position.X+handleWidth:
			return Hit{Kind: HitInput, NodeID: n.ID}
		default:
			return Hit{Kind: HitNode, NodeID: n.ID}
		}
	}
	return Hit{Kind: HitNone}
}

// PointerDown starts a gesture
func (c *Canvas) PointerDown(ev PointerEvent) {
	p := ev.point()
	c.lastPointer = p

	// A palette drag finishes on release; nothing starts underneath it
	if c.template != nil {
		return
	}

	hit := c.HitTest(p)
	switch hit.Kind {
	case HitOutput:
		c.gesture = GestureConnecting
		c.connecting = &ConnectingState{Source: hit.NodeID, MousePos: &p}

	case HitNode, HitInput:
		node, _ := c.wf.FindNode(hit.NodeID)
		c.Select(hit.NodeID)
		c.gesture = GestureNodeDragging
		c.dragNode = hit.NodeID
		c.dragMoved = false
		pos := ToCanvas(p, c.Pan, c.zoom)
		c.grabOffset = workflow.Position{X: pos.X - node.Position.X, Y: pos.Y - node.Position.Y}

	default:
		if c.selected != "" {
			c.Select("")
		}
		c.gesture = GesturePanning
	}
}

// PointerMove advances the current gesture
func (c *Canvas) PointerMove(ev PointerEvent) {
	p := ev.point()
	defer func() { c.lastPointer = p }()

	switch c.gesture {
	case GesturePanning:
		c.Pan = c.Pan.Add(p.Sub(c.lastPointer))

	case GestureNodeDragging:
		pos := ToCanvas(p, c.Pan, c.zoom)
		pos.X -= c.grabOffset.X
		pos.Y -= c.grabOffset.Y
		if err := c.wf.MoveNode(c.dragNode, pos); err == nil {
			c.dragMoved = true
		}

	case GestureConnecting:
		c.connecting.MousePos = &p
		c.connecting.Target = ""
		if hit := c.HitTest(p); hit.Kind == HitInput && hit.NodeID != c.connecting.Source {
			c.connecting.Target = hit.NodeID
		}
	}
}

// PointerUp finishes the current gesture.
// Releasing a palette drag drops the template; releasing a connection drag
// over another node's input handle commits the connection.
func (c *Canvas) PointerUp(ev PointerEvent) {
	p := ev.point()
	c.lastPointer = p

	if c.template != nil {
		t := *c.template
		c.template = nil
		c.Drop(t, p)
		c.gesture = GestureIdle
		return
	}

	switch c.gesture {
	case GestureConnecting:
		source := c.connecting.Source
		if hit := c.HitTest(p); hit.Kind == HitInput {
			c.Connect(source, hit.NodeID)
		}
	case GestureNodeDragging:
		if c.dragMoved {
			c.changed()
		}
	}

	c.connecting = nil
	c.dragNode = ""
	c.gesture = GestureIdle
}

// Drop instantiates t at the canvas coordinate under client.
// Drops landing at a negative canvas coordinate are ignored.
func (c *Canvas) Drop(t registry.Template, client Point) (*workflow.Node, bool) {
	pos := ToCanvas(client, c.Pan, c.zoom)
	if pos.X < 0 || pos.Y < 0 {
		return nil, false
	}

	node := t.Instantiate(pos)
	if err := c.wf.AddNode(node); err != nil {
		return nil, false
	}
	c.changed()
	return node, true
}

// Connect adds an edge from source to target.
// Self connections and duplicate pairs are silently ignored.
func (c *Canvas) Connect(source, target workflow.NodeID) (*workflow.Connection, bool) {
	conn, err := c.wf.Connect(source, target)
	if err != nil {
		return nil, false
	}
	c.changed()
	return conn, true
}

// DeleteConnection removes one edge
func (c *Canvas) DeleteConnection(id workflow.ConnectionID) bool {
	if err := c.wf.RemoveConnection(id); err != nil {
		return false
	}
	c.changed()
	return true
}

// DeleteNode removes a node and every connection touching it
func (c *Canvas) DeleteNode(id workflow.NodeID) bool {
	if err := c.wf.RemoveNode(id); err != nil {
		return false
	}
	if c.selected == id {
		c.Select("")
	}
	c.changed()
	return true
}

// DeleteSelected removes the selected node
func (c *Canvas) DeleteSelected() bool {
	if c.selected == "" {
		return false
	}
	return c.DeleteNode(c.selected)
}

// AddRecommended places a node from t to the right of the right-most node
func (c *Canvas) AddRecommended(t registry.Template) *workflow.Node {
	pos := workflow.Position{X: recommendedGap, Y: recommendedGap}
	var rightmost *workflow.Node
	for _, n := range c.wf.Nodes {
		if rightmost == nil || n.Position.X > rightmost.Position.X {
			rightmost = n
		}
	}
	if rightmost != nil {
		pos = workflow.Position{X: rightmost.Position.X + NodeWidth + recommendedGap, Y: rightmost.Position.Y}
	}

	node := t.Instantiate(pos)
	if err := c.wf.AddNode(node); err != nil {
		return nil
	}
	c.changed()
	return node
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom]
func (c *Canvas) SetZoom(zoom float64) {
	c.zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

// ZoomBy multiplies the zoom by factor, keeping the canvas point under
// anchor in place
func (c *Canvas) ZoomBy(factor float64, anchor Point) {
	if factor <= 0 {
		return
	}
	before := ToCanvas(anchor, c.Pan, c.zoom)
	c.SetZoom(c.zoom * factor)
	c.Pan = Point{
		X: anchor.X - before.X*c.zoom,
		Y: anchor.Y - before.Y*c.zoom,
	}
}

// ResetView returns to pan (0,0) and zoom 1
func (c *Canvas) ResetView() {
	c.Pan = Point{}
	c.zoom = 1.0
}

// PanBy shifts the view by a client offset
func (c *Canvas) PanBy(dx, dy float64) {
	c.Pan = c.Pan.Add(Point{X: dx, Y: dy})
}

// NudgeSelected moves the selected node by a canvas offset
func (c *Canvas) NudgeSelected(dx, dy float64) bool {
	n := c.Selected()
	if n == nil {
		return false
	}
	if err := c.wf.MoveNode(n.ID, workflow.Position{X: n.Position.X + dx, Y: n.Position.Y + dy}); err != nil {
		return false
	}
	c.changed()
	return true
}

// EdgePath routes an edge between two client points.
// A straight line when level, otherwise horizontal, vertical, horizontal
// through the midpoint column. Backward edges loop below the source.
func EdgePath(from, to Point) []Point {
	if from.Y == to.Y && to.X >= from.X {
		return []Point{from, to}
	}
	if to.X > from.X {
		midX := math.Round((from.X + to.X) / 2)
		return []Point{from, {X: midX, Y: from.Y}, {X: midX, Y: to.Y}, to}
	}

	// Backward edge: step right, drop below, run left, step into the target
	const gap = 2
	lowY := math.Max(from.Y, to.Y) + NodeHeight
	return []Point{
		from,
		{X: from.X + gap, Y: from.Y},
		{X: from.X + gap, Y: lowY},
		{X: to.X - gap, Y: lowY},
		{X: to.X - gap, Y: to.Y},
		to,
	}
}

// ConnectionPath returns the client-space route of a connection
func (c *Canvas) ConnectionPath(conn *workflow.Connection) []Point {
	source, ok := c.wf.FindNode(conn.Source)
	if !ok {
		return nil
	}
	target, ok := c.wf.FindNode(conn.Target)
	if !ok {
		return nil
	}
	return EdgePath(
		ToClient(outputHandle(source), c.Pan, c.zoom),
		ToClient(inputHandle(target), c.Pan, c.zoom),
	)
}

// PreviewPath returns the live route of the connection being dragged
func (c *Canvas) PreviewPath() []Point {
	if c.connecting == nil || c.connecting.MousePos == nil {
		return nil
	}
	source, ok := c.wf.FindNode(c.connecting.Source)
	if !ok {
		return nil
	}
	return EdgePath(ToClient(outputHandle(source), c.Pan, c.zoom), *c.connecting.MousePos)
}
