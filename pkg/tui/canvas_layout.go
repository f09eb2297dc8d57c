package tui

import (
	"math"

	"github.com/dshills/aihub/pkg/workflow"
)

// Layout spacing in canvas units
const (
	layoutColumnGap = 8
	layoutRowGap    = 2
	layoutStartX    = 4
	layoutStartY    = 2
)

// AutoLayout arranges nodes in columns by dependency depth, left to right.
// Each node lands one column after its deepest predecessor; nodes caught in
// a cycle are placed in a final column. Node order within a column follows
// graph order.
func (c *Canvas) AutoLayout() {
	if len(c.wf.Nodes) == 0 {
		return
	}

	columns := assignColumns(c.wf)
	for col, ids := range columns {
		x := layoutStartX + float64(col)*(NodeWidth+layoutColumnGap)
		for row, id := range ids {
			y := layoutStartY + float64(row)*(NodeHeight+layoutRowGap)
			_ = c.wf.MoveNode(id, workflow.Position{X: x, Y: y})
		}
	}
	c.changed()
}

// assignColumns runs Kahn's algorithm, tracking the longest path to each node
func assignColumns(wf *workflow.Workflow) [][]workflow.NodeID {
	inDegree := make(map[workflow.NodeID]int, len(wf.Nodes))
	adjacency := make(map[workflow.NodeID][]workflow.NodeID, len(wf.Nodes))
	for _, n := range wf.Nodes {
		inDegree[n.ID] = 0
	}
	for _, conn := range wf.Connections {
		adjacency[conn.Source] = append(adjacency[conn.Source], conn.Target)
		inDegree[conn.Target]++
	}

	column := make(map[workflow.NodeID]int, len(wf.Nodes))
	queue := make([]workflow.NodeID, 0)
	for _, n := range wf.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
			column[n.ID] = 0
		}
	}

	placed := make(map[workflow.NodeID]bool, len(wf.Nodes))
	maxColumn := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		placed[current] = true

		for _, next := range adjacency[current] {
			if col := column[current] + 1; col > column[next] {
				column[next] = col
			}
			maxColumn = max(maxColumn, column[next])
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	cyclic := false
	for _, n := range wf.Nodes {
		if !placed[n.ID] {
			cyclic = true
			break
		}
	}
	if cyclic {
		maxColumn++
	}

	columns := make([][]workflow.NodeID, maxColumn+1)
	for _, n := range wf.Nodes {
		col := column[n.ID]
		if !placed[n.ID] {
			col = maxColumn
		}
		columns[col] = append(columns[col], n.ID)
	}
	return columns
}

// FitAll zooms and pans so every node fits in a viewport of the given size
func (c *Canvas) FitAll(width, height int) {
	if len(c.wf.Nodes) == 0 || width <= 0 || height <= 0 {
		c.ResetView()
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range c.wf.Nodes {
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+NodeWidth)
		maxY = math.Max(maxY, n.Position.Y+NodeHeight)
	}

	zoom := math.Min(float64(width)/(maxX-minX), float64(height)/(maxY-minY)) * 0.9
	c.SetZoom(zoom)

	// Center the content
	contentW := (maxX - minX) * c.zoom
	contentH := (maxY - minY) * c.zoom
	c.Pan = Point{
		X: math.Round((float64(width)-contentW)/2 - minX*c.zoom),
		Y: math.Round((float64(height)-contentH)/2 - minY*c.zoom),
	}
}
