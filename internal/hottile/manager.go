// Package hottile caches render outputs one macrotile at a time.
//
// A hot tile is the in-memory buffer of one attachment of one macrotile.
// Backends write to hot tiles only; the driver's load and store callbacks
// move data between hot tiles and the real surfaces. Tiles are created on
// first reference and live until the manager is discarded.
//
// The directory is sharded by macrotile so workers rasterizing different
// macrotiles rarely contend. The contents and state of a tile are only
// touched by the worker that currently owns its macrotile.
package hottile

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"honnef.co/go/safeish"

	"github.com/gogpu/swrast/internal/raster"
)

// Surface is the driver's backing store for an attachment. The manager only
// passes it through to the callbacks.
type Surface any

// LoadFunc fills a hot tile from the surface.
type LoadFunc func(s Surface, att Attachment, macroX, macroY, rtai uint32, t *HotTile)

// StoreFunc writes a hot tile back to the surface.
type StoreFunc func(s Surface, att Attachment, macroX, macroY, rtai uint32, t *HotTile)

// ClearFunc clears the region of a macrotile on the surface without going
// through a hot tile buffer.
type ClearFunc func(s Surface, att Attachment, macroX, macroY, rtai uint32, v ClearValue)

// Callbacks are the driver hooks invoked lazily per macrotile.
type Callbacks struct {
	Load  LoadFunc
	Store StoreFunc
	Clear ClearFunc
}

// Surfaces binds a surface to every attachment.
type Surfaces [NumAttachments]Surface

// ClearValue is the pending value of a fast clear.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint8
}

// HotTile is the buffer of one attachment of one macrotile.
type HotTile struct {
	// Buffer holds raster tiles row-major across the macrotile. Each raster
	// tile holds NumSamples sample planes in coverage-mask pixel order.
	Buffer                 []byte
	State                  State
	NumSamples             uint32
	RenderTargetArrayIndex uint32
	ClearValue             ClearValue
}

const (
	shardCount = 16
	shardMask  = shardCount - 1
)

type key struct {
	macroTile uint32
	rtai      uint32
}

type macroTile [NumAttachments]*HotTile

type shard struct {
	mu    sync.Mutex
	tiles map[key]*macroTile
}

// Manager owns all hot tiles of a context.
type Manager struct {
	shards [shardCount]shard
	cb     Callbacks
	log    *slog.Logger

	numTiles atomic.Int64
	bytes    atomic.Int64
}

// NewManager creates an empty manager. log may be nil.
func NewManager(cb Callbacks, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := &Manager{cb: cb, log: log}
	for i := range m.shards {
		m.shards[i].tiles = make(map[key]*macroTile)
	}
	return m
}

func (m *Manager) lookup(id, rtai uint32, create bool) *macroTile {
	sh := &m.shards[(id^id>>16)&shardMask]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	mt := sh.tiles[key{id, rtai}]
	if mt == nil && create {
		mt = new(macroTile)
		sh.tiles[key{id, rtai}] = mt
	}
	return mt
}

// HotTile returns the hot tile of an attachment. A missing tile is allocated
// when create is set, in state Invalid; a tile whose sample count changed is
// reallocated. Without create a missing tile yields nil.
func (m *Manager) HotTile(id uint32, att Attachment, create bool, numSamples, rtai uint32) *HotTile {
	mt := m.lookup(id, rtai, create)
	if mt == nil {
		return nil
	}
	t := mt[att]
	if !create {
		return t
	}
	if t != nil && t.NumSamples == numSamples {
		return t
	}

	size := raster.MacroTileBytes(att.BytesPerSample(), numSamples)
	if t == nil {
		t = &HotTile{}
		mt[att] = t
		m.numTiles.Add(1)
	} else {
		m.bytes.Add(-int64(len(t.Buffer)))
	}
	t.Buffer = make([]byte, size)
	t.State = Invalid
	t.NumSamples = numSamples
	t.RenderTargetArrayIndex = rtai
	m.bytes.Add(int64(size))

	x, y := raster.MacroTileCoords(id)
	m.log.Debug("hottile: allocated",
		"attachment", att, "macroX", x, "macroY", y, "samples", numSamples, "bytes", size)
	return t
}

// Initialize prepares the tiles of atts for rendering: invalid tiles are
// loaded from their surface and pending clears are materialized. Both end up
// Dirty.
func (m *Manager) Initialize(id uint32, atts AttachmentMask, numSamples, rtai uint32, surfaces *Surfaces) {
	x, y := raster.MacroTileCoords(id)
	for att := range NumAttachments {
		if !atts.Has(att) {
			continue
		}
		t := m.HotTile(id, att, true, numSamples, rtai)
		switch t.State {
		case Invalid:
			if m.cb.Load != nil {
				m.cb.Load(surfaces[att], att, x, y, rtai, t)
			}
			t.State = Dirty
		case Clear:
			Fill(t, att)
			t.State = Dirty
		}
	}
}

// Clear records a fast clear of atts. The tile buffers are filled lazily.
func (m *Manager) Clear(id uint32, atts AttachmentMask, numSamples, rtai uint32, v ClearValue) {
	for att := range NumAttachments {
		if !atts.Has(att) {
			continue
		}
		t := m.HotTile(id, att, true, numSamples, rtai)
		t.ClearValue = v
		t.State = Clear
	}
}

// Store writes Dirty and Clear tiles of atts back to their surfaces and moves
// them to post, which is Resolved or Invalid. A pending clear is handed to the
// clear callback when there is one.
func (m *Manager) Store(id uint32, atts AttachmentMask, rtai uint32, post State, surfaces *Surfaces) {
	x, y := raster.MacroTileCoords(id)
	for att := range NumAttachments {
		if !atts.Has(att) {
			continue
		}
		t := m.HotTile(id, att, false, 0, rtai)
		if t == nil || t.State == Invalid || t.State == Resolved {
			continue
		}
		if t.State == Clear {
			if m.cb.Clear != nil {
				m.cb.Clear(surfaces[att], att, x, y, rtai, t.ClearValue)
				if post == Resolved {
					Fill(t, att)
				}
				t.State = post
				continue
			}
			Fill(t, att)
		}
		if m.cb.Store != nil {
			m.cb.Store(surfaces[att], att, x, y, rtai, t)
		}
		t.State = post
	}
}

// Invalidate discards the contents of atts without storing them.
func (m *Manager) Invalidate(id uint32, atts AttachmentMask, rtai uint32) {
	for att := range NumAttachments {
		if !atts.Has(att) {
			continue
		}
		if t := m.HotTile(id, att, false, 0, rtai); t != nil {
			t.State = Invalid
		}
	}
}

// NumTiles returns the number of allocated hot tiles.
func (m *Manager) NumTiles() int { return int(m.numTiles.Load()) }

// Bytes returns the memory held by hot tile buffers.
func (m *Manager) Bytes() int64 { return m.bytes.Load() }

// Fill writes the tile's clear value into every sample.
func Fill(t *HotTile, att Attachment) {
	v := t.ClearValue
	switch {
	case att < Depth:
		px := safeish.SliceCast[[]float32](t.Buffer)
		c := [4]float32{float32(v.Color.R), float32(v.Color.G), float32(v.Color.B), float32(v.Color.A)}
		for i := 0; i+4 <= len(px); i += 4 {
			copy(px[i:i+4], c[:])
		}
	case att == Depth:
		d := safeish.SliceCast[[]float32](t.Buffer)
		for i := range d {
			d[i] = v.Depth
		}
	default:
		for i := range t.Buffer {
			t.Buffer[i] = v.Stencil
		}
	}
}
