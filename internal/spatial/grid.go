// Package spatial is the broad-phase index used for every proximity and
// collision query in a match.
package spatial

import (
	"fmt"
	"math"

	"royale-server/internal/geom"
)

// Object is anything that can be registered in the grid
type Object interface {
	ID() uint32
	Shape() geom.Shape
}

type entry struct {
	obj     Object
	dynamic bool
	stamp   uint32

	// covered cell range, inclusive
	minX, minY, maxX, maxY int
}

type cell struct {
	static  []*entry
	dynamic []*entry
}

// Grid is a uniform-cell grid over a bounded world. Positions outside the
// world are clamped into the edge cells.
type Grid struct {
	cellSize float64
	cols     int
	rows     int
	cells    []cell
	entries  map[uint32]*entry
	stamp    uint32
}

// NewGrid creates a grid covering [0,width] x [0,height]
func NewGrid(width, height, cellSize float64) *Grid {
	if !(width > 0 && height > 0 && cellSize > 0) {
		panic(fmt.Sprintf("spatial: invalid grid %vx%v cell %v", width, height, cellSize))
	}
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1
	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([]cell, cols*rows),
		entries:  make(map[uint32]*entry),
	}
}

// CellSize returns the edge length of one cell
func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns the number of registered objects
func (g *Grid) Len() int { return len(g.entries) }

// Has reports whether obj is registered
func (g *Grid) Has(obj Object) bool {
	_, ok := g.entries[obj.ID()]
	return ok
}

// IsDynamic reports whether obj has been promoted to the dynamic set
func (g *Grid) IsDynamic(obj Object) bool {
	e, ok := g.entries[obj.ID()]
	return ok && e.dynamic
}

func (g *Grid) cellCoord(v float64, n int) int {
	c := int(math.Floor(v / g.cellSize))
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (g *Grid) cellRange(s geom.Shape) (minX, minY, maxX, maxY int) {
	lo, hi := s.Bounds()
	return g.cellCoord(lo.X, g.cols), g.cellCoord(lo.Y, g.rows),
		g.cellCoord(hi.X, g.cols), g.cellCoord(hi.Y, g.rows)
}

// Insert registers obj as a static object in every cell its shape overlaps.
// Inserting an object that is already registered panics.
func (g *Grid) Insert(obj Object) {
	g.insert(obj, false)
}

// InsertDynamic registers obj directly in the dynamic set
func (g *Grid) InsertDynamic(obj Object) {
	g.insert(obj, true)
}

func (g *Grid) insert(obj Object, dynamic bool) {
	id := obj.ID()
	if _, ok := g.entries[id]; ok {
		panic(fmt.Sprintf("spatial: object %d inserted twice", id))
	}
	e := &entry{obj: obj, dynamic: dynamic}
	e.minX, e.minY, e.maxX, e.maxY = g.cellRange(obj.Shape())
	g.entries[id] = e
	g.link(e)
}

// Remove deregisters obj from every cell it occupies.
// Removing an object that is not registered panics.
func (g *Grid) Remove(obj Object) {
	id := obj.ID()
	e, ok := g.entries[id]
	if !ok {
		panic(fmt.Sprintf("spatial: object %d removed while not registered", id))
	}
	g.unlink(e)
	delete(g.entries, id)
}

// Update recomputes the cells of obj after its shape changed. Only the cells
// it left or entered are touched. Moving a static object promotes it.
func (g *Grid) Update(obj Object) {
	id := obj.ID()
	e, ok := g.entries[id]
	if !ok {
		panic(fmt.Sprintf("spatial: object %d updated while not registered", id))
	}
	minX, minY, maxX, maxY := g.cellRange(obj.Shape())
	if !e.dynamic {
		g.unlink(e)
		e.dynamic = true
		e.minX, e.minY, e.maxX, e.maxY = minX, minY, maxX, maxY
		g.link(e)
		return
	}
	if minX == e.minX && minY == e.minY && maxX == e.maxX && maxY == e.maxY {
		return
	}
	for y := e.minY; y <= e.maxY; y++ {
		for x := e.minX; x <= e.maxX; x++ {
			if x < minX || x > maxX || y < minY || y > maxY {
				g.cells[y*g.cols+x].dynamic = removeEntry(g.cells[y*g.cols+x].dynamic, e)
			}
		}
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if x < e.minX || x > e.maxX || y < e.minY || y > e.maxY {
				c := &g.cells[y*g.cols+x]
				c.dynamic = append(c.dynamic, e)
			}
		}
	}
	e.minX, e.minY, e.maxX, e.maxY = minX, minY, maxX, maxY
}

// MakeDynamic moves obj to the dynamic set. Promotion cannot be undone.
func (g *Grid) MakeDynamic(obj Object) {
	e, ok := g.entries[obj.ID()]
	if !ok {
		panic(fmt.Sprintf("spatial: object %d promoted while not registered", obj.ID()))
	}
	if e.dynamic {
		return
	}
	g.unlink(e)
	e.dynamic = true
	g.link(e)
}

func (g *Grid) link(e *entry) {
	for y := e.minY; y <= e.maxY; y++ {
		for x := e.minX; x <= e.maxX; x++ {
			c := &g.cells[y*g.cols+x]
			if e.dynamic {
				c.dynamic = append(c.dynamic, e)
			} else {
				c.static = append(c.static, e)
			}
		}
	}
}

func (g *Grid) unlink(e *entry) {
	for y := e.minY; y <= e.maxY; y++ {
		for x := e.minX; x <= e.maxX; x++ {
			c := &g.cells[y*g.cols+x]
			if e.dynamic {
				c.dynamic = removeEntry(c.dynamic, e)
			} else {
				c.static = removeEntry(c.static, e)
			}
		}
	}
}

// removeEntry deletes e keeping the remaining order stable
func removeEntry(list []*entry, e *entry) []*entry {
	for i, other := range list {
		if other == e {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

// IntersectShape returns every registered object whose shape overlaps s,
// each exactly once. A zero-area query returns nil.
func (g *Grid) IntersectShape(s geom.Shape) []Object {
	return g.query(s, true, nil)
}

// IntersectDynamic is IntersectShape restricted to dynamic objects
func (g *Grid) IntersectDynamic(s geom.Shape) []Object {
	return g.query(s, false, nil)
}

// IntersectObject returns the objects overlapping obj's shape, excluding obj
func (g *Grid) IntersectObject(obj Object) []Object {
	return g.query(obj.Shape(), true, obj)
}

func (g *Grid) query(s geom.Shape, withStatic bool, exclude Object) []Object {
	if s.Degenerate() {
		return nil
	}
	g.stamp++
	if g.stamp == 0 {
		// wrapped; stale stamps could collide
		for _, e := range g.entries {
			e.stamp = 0
		}
		g.stamp = 1
	}
	var skip uint32
	hasSkip := exclude != nil
	if hasSkip {
		skip = exclude.ID()
	}

	var out []Object
	visit := func(list []*entry) {
		for _, e := range list {
			if e.stamp == g.stamp {
				continue
			}
			e.stamp = g.stamp
			if hasSkip && e.obj.ID() == skip {
				continue
			}
			if geom.Overlap(s, e.obj.Shape()) {
				out = append(out, e.obj)
			}
		}
	}

	minX, minY, maxX, maxY := g.cellRange(s)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			c := &g.cells[y*g.cols+x]
			if withStatic {
				visit(c.static)
			}
			visit(c.dynamic)
		}
	}
	return out
}
