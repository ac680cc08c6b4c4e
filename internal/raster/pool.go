package raster

import (
	"errors"
	"fmt"
	"sync"
)

// Pool hands out render devices. Devices are created on demand by the
// factory, returned with Release and disposed when the pool closes.
type Pool struct {
	mu      sync.Mutex
	factory Factory
	free    []Device
	created int
	closed  bool
}

// NewPool creates a pool around a device factory
func NewPool(factory Factory) *Pool {
	if factory == nil {
		factory = SoftwareFactory
	}
	return &Pool{factory: factory}
}

// Acquire returns a cleared device of the requested size
func (p *Pool) Acquire(width, height int) (Device, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool closed: %w", ErrDeviceUnavailable)
	}
	var dev Device
	if n := len(p.free); n > 0 {
		dev = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if dev == nil {
		d, err := p.factory(width, height)
		if err != nil {
			return nil, fmt.Errorf("create device: %w", wrapUnavailable(err))
		}
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
		dev = d
	}

	if w, h := dev.Size(); w != width || h != height {
		if err := dev.Resize(width, height); err != nil {
			dev.Dispose()
			return nil, fmt.Errorf("resize device: %w", wrapUnavailable(err))
		}
	}
	dev.Clear()
	return dev, nil
}

// Release returns a device to the pool
func (p *Pool) Release(dev Device) {
	if dev == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		dev.Dispose()
		return
	}
	p.free = append(p.free, dev)
}

// Created reports how many devices the factory has produced
func (p *Pool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// Close disposes every idle device. Devices released later are disposed
// on release.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, d := range p.free {
		d.Dispose()
	}
	p.free = nil
	p.closed = true
}

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
