package swrast

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Topology is the primitive topology of a draw. The basic topologies share
// their values with gputypes.PrimitiveTopology; patch lists carry their
// control point count.
type Topology uint32

// Primitive topologies.
const (
	TriangleList  = Topology(gputypes.PrimitiveTopologyTriangleList)
	PointList     = Topology(gputypes.PrimitiveTopologyPointList)
	LineList      = Topology(gputypes.PrimitiveTopologyLineList)
	LineStrip     = Topology(gputypes.PrimitiveTopologyLineStrip)
	TriangleStrip = Topology(gputypes.PrimitiveTopologyTriangleStrip)

	patchListBase Topology = 0x100
)

// MaxPatchControlPoints is the largest control point count of a patch list.
const MaxPatchControlPoints = 32

// TopologyOf converts a WebGPU topology.
func TopologyOf(t gputypes.PrimitiveTopology) Topology { return Topology(t) }

// PatchList returns the patch list topology with n control points per patch.
// It panics unless 1 <= n <= MaxPatchControlPoints.
func PatchList(n uint32) Topology {
	if n == 0 || n > MaxPatchControlPoints {
		panic(fmt.Sprintf("swrast: invalid patch control point count %d", n))
	}
	return patchListBase + Topology(n)
}

// IsPatchList reports whether t is a patch list.
func (t Topology) IsPatchList() bool {
	return t > patchListBase && t <= patchListBase+MaxPatchControlPoints
}

// ControlPoints returns the control points per patch, or 0 for other
// topologies.
func (t Topology) ControlPoints() uint32 {
	if !t.IsPatchList() {
		return 0
	}
	return uint32(t - patchListBase)
}

func (t Topology) String() string {
	if t.IsPatchList() {
		return fmt.Sprintf("PatchList%d", t.ControlPoints())
	}
	return gputypes.PrimitiveTopology(t).String()
}

// VertsPerPrim returns the vertices that make up one primitive.
func (t Topology) VertsPerPrim() uint32 {
	switch t {
	case PointList:
		return 1
	case LineList, LineStrip:
		return 2
	case TriangleList, TriangleStrip:
		return 3
	}
	return t.ControlPoints()
}

// NumPrims returns how many primitives n vertices assemble into.
func (t Topology) NumPrims(n uint32) uint32 {
	switch t {
	case PointList:
		return n
	case LineList:
		return n / 2
	case LineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case TriangleList:
		return n / 3
	case TriangleStrip:
		if n < 3 {
			return 0
		}
		return n - 2
	}
	if cp := t.ControlPoints(); cp != 0 {
		return n / cp
	}
	return 0
}
