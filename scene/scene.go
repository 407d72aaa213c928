package scene

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Scene is the ordered list of objects handed to the render passes. Version
// increases on every structural or transform change so callers can decide
// when cached results such as the voxel volume are stale.
type Scene struct {
	mu      sync.RWMutex
	objects []*Object
	version uint64
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) Add(objects ...*Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, objects...)
	s.version++
}

// Remove drops the object with the given ID and reports whether it was present.
func (s *Scene) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = slices.Delete(s.objects, i, i+1)
			s.version++
			return true
		}
	}
	return false
}

// Objects returns a snapshot of the object list in draw order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

func (s *Scene) Find(name string) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Scene) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// MarkChanged records an in-place edit such as a moved object or a new material.
func (s *Scene) MarkChanged() {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()
}

// SortOpaqueFirst moves opaque objects ahead of blended ones, keeping the
// relative order within each group.
func (s *Scene) SortOpaqueFirst() {
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortStableFunc(s.objects, func(a, b *Object) int {
		switch {
		case a.Opaque() == b.Opaque():
			return 0
		case a.Opaque():
			return -1
		default:
			return 1
		}
	})
	s.version++
}

func (s *Scene) TriangleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.objects {
		if o.Mesh != nil {
			n += o.Mesh.TriangleCount()
		}
	}
	return n
}

// Bounds returns the world-space AABB of every object.
func (s *Scene) Bounds() AABB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b AABB
	for i, o := range s.objects {
		if i == 0 {
			b = o.WorldBounds()
			continue
		}
		b = b.Union(o.WorldBounds())
	}
	return b
}
