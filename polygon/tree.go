package polygon

import (
	"sort"
)

type Role int

const (
	RoleOuter Role = iota
	RoleHole
)

func (r Role) String() string {
	switch r {
	case RoleOuter:
		return "outer"
	case RoleHole:
		return "hole"
	default:
	}
	return "unknown role"
}

// Node is one contour of the nesting tree. Level 0 is a root solid.
type Node struct {
	Contour  Contour
	Level    int
	Children []*Node
}

// Role is outer for even levels and hole for odd ones
func (n *Node) Role() Role {
	if n.Level%2 == 0 {
		return RoleOuter
	}
	return RoleHole
}

// Tree is the nesting of a boolean or offset result
type Tree struct {
	Roots []*Node
}

// Walk visits nodes depth first, parents before children.
// Returning false from fn skips the children of the node.
func (t *Tree) Walk(fn func(*Node) bool) {
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
}

func (t *Tree) NodeCount() int {
	retVal := 0
	t.Walk(func(*Node) bool { retVal++; return true })
	return retVal
}

// HoleCount returns the number of odd level nodes
func (t *Tree) HoleCount() int {
	retVal := 0
	t.Walk(func(n *Node) bool {
		if n.Role() == RoleHole {
			retVal++
		}
		return true
	})
	return retVal
}

// Flatten returns all contours, parents first
func (t *Tree) Flatten() ContourSet {
	retVal := make(ContourSet, 0)
	t.Walk(func(n *Node) bool {
		retVal = append(retVal, n.Contour)
		return true
	})
	return retVal
}

// Polygon is a solid with its direct holes. Islands are the solids lying
// inside the holes of this polygon.
type Polygon struct {
	Outer   Contour
	Holes   []*Hole
	Islands []*Polygon
	Level   int
}

type Hole struct {
	Contour Contour
	Islands []*Polygon
}

// Contours returns the outer contour followed by the holes
func (p *Polygon) Contours() ContourSet {
	retVal := ContourSet{p.Outer}
	for _, h := range p.Holes {
		retVal = append(retVal, h.Contour)
	}
	return retVal
}

// Area is the outer area minus the holes, islands not included
func (p *Polygon) Area() float64 {
	return p.Contours().Area()
}

// HoleCount counts holes of the polygon and of all nested islands
func (p *Polygon) HoleCount() int {
	retVal := len(p.Holes)
	for _, h := range p.Holes {
		for _, isl := range h.Islands {
			retVal += isl.HoleCount()
		}
	}
	return retVal
}

// Polygons converts the tree into top level polygons.
// Every island is attached both to the hole containing it and to the
// solid owning that hole.
func (t *Tree) Polygons() []*Polygon {
	retVal := make([]*Polygon, 0, len(t.Roots))
	for _, n := range t.Roots {
		if n.Role() == RoleOuter {
			retVal = append(retVal, solidFromNode(n))
		}
	}
	return retVal
}

func solidFromNode(n *Node) *Polygon {
	retVal := &Polygon{Outer: n.Contour, Level: n.Level}
	for _, hn := range n.Children {
		h := &Hole{Contour: hn.Contour}
		for _, in := range hn.Children {
			island := solidFromNode(in)
			h.Islands = append(h.Islands, island)
			retVal.Islands = append(retVal.Islands, island)
		}
		retVal.Holes = append(retVal.Holes, h)
	}
	return retVal
}

// BuildTree rebuilds the nesting of a flat contour list by containment.
// Contours are placed from the largest to the smallest, each under the
// smallest already placed contour containing it. Orientation and the Hole
// flag are set from the resulting level.
func BuildTree(cs ContourSet) *Tree {
	items := make([]Contour, 0, len(cs))
	for _, c := range cs {
		if c.Open || len(c.Points) < 3 {
			continue
		}
		items = append(items, c.Clone())
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Area() > items[j].Area()
	})
	retVal := new(Tree)
	placed := make([]*Node, 0, len(items))
	for _, c := range items {
		var parent *Node
		probe := interiorProbe(c)
		// placed is sorted by decreasing area, the last container found is the smallest
		for _, p := range placed {
			if p.Contour.Contains(probe) {
				parent = p
			}
		}
		n := &Node{Contour: c}
		if parent == nil {
			retVal.Roots = append(retVal.Roots, n)
		} else {
			n.Level = parent.Level + 1
			parent.Children = append(parent.Children, n)
		}
		n.Contour.Hole = n.Role() == RoleHole
		n.Contour.Normalize()
		placed = append(placed, n)
	}
	return retVal
}

// interiorProbe returns a point just inside the contour near its first edge
func interiorProbe(c Contour) Point {
	n := c.Normalized()
	n.Hole = false
	n.Normalize()
	for i := range n.Points {
		a := n.Points[i]
		b := n.Points[(i+1)%len(n.Points)]
		d := b.Dist(a)
		if d == 0 {
			continue
		}
		mid := a.Add(b).Scale(0.5)
		// left normal of a counter-clockwise contour points inside
		eps := d * 1e-3
		left := Point{-(b.Y - a.Y) / d, (b.X - a.X) / d}
		return mid.Add(left.Scale(eps))
	}
	return c.Points[0]
}
