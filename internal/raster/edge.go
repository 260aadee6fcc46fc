// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import "golang.org/x/image/math/fixed"

// edge is one triangle edge as an exact fixed-point linear function
//
//	E(x, y) = A*(x - x0) + B*(y - y0) + bias
//
// with (x0, y0) the edge's start vertex. Interior points have E > 0 after
// winding normalization. bias is 0 for top and left edges and -1 otherwise,
// so "inside" is simply E >= 0 and a sample lying exactly on an edge belongs
// to exactly one of the two triangles sharing it.
type edge struct {
	a, b   int64
	x0, y0 int64
	bias   int64
}

// eval evaluates the edge at a fixed-point position.
func (e *edge) eval(x, y int64) int64 {
	return e.a*(x-e.x0) + e.b*(y-e.y0) + e.bias
}

// topLeft reports whether the edge is a top edge (horizontal with the
// interior below it) or a left edge (interior to its right). Screen y grows
// downward.
func (e *edge) topLeft() bool {
	return e.a > 0 || (e.a == 0 && e.b > 0)
}

// setupEdges builds the three edges v0->v1, v1->v2, v2->v0 and returns them
// normalized so the interior is positive, together with twice the triangle
// area in 26.6 squared units. A zero area means the triangle is degenerate.
func setupEdges(vx, vy [3]fixed.Int26_6) (edges [3]edge, det int64) {
	for k := range 3 {
		n := (k + 1) % 3
		edges[k] = edge{
			a:  int64(vy[k]) - int64(vy[n]),
			b:  int64(vx[n]) - int64(vx[k]),
			x0: int64(vx[k]),
			y0: int64(vy[k]),
		}
	}
	// Edge v1->v2 evaluated at v0.
	det = edges[1].a*(int64(vx[0])-edges[1].x0) + edges[1].b*(int64(vy[0])-edges[1].y0)
	if det < 0 {
		det = -det
		for k := range edges {
			edges[k].a = -edges[k].a
			edges[k].b = -edges[k].b
		}
	}
	for k := range edges {
		if !edges[k].topLeft() {
			edges[k].bias = -1
		}
	}
	return edges, det
}
