package camera

import (
	"sync"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// Slot holds the latest decoded frame for presentation.
// Readers observe either the previous or the new complete frame.
type Slot struct {
	lock  sync.RWMutex
	frame *pixel.Frame
	seq   uint64
}

// Store replaces the latest frame.
func (s *Slot) Store(f *pixel.Frame) {
	s.lock.Lock()
	s.frame = f
	s.seq++
	s.lock.Unlock()
}

// Load returns the latest frame and its sequence number, nil if none.
func (s *Slot) Load() (*pixel.Frame, uint64) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.frame, s.seq
}

// Emit implements event.Sink, keeping only frames.
func (s *Slot) Emit(ev event.Event) {
	if f, ok := ev.(*pixel.Frame); ok {
		s.Store(f)
	}
}
