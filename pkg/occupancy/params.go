package occupancy

import (
	"github.com/matzehuels/nocsched/pkg/errors"
)

// Default timing parameters.
const (
	// DefaultLinkWidth is the payload carried by one flit, in bytes.
	DefaultLinkWidth = 4

	// DefaultHeaderFlits is the fixed per-packet flit overhead.
	DefaultHeaderFlits = 1

	// DefaultRoutingTime is the number of cycles a router spends per hop.
	DefaultRoutingTime = 4
)

// Params are the hardware assumptions baked into occupancy values. They must
// match the solver model the data is fed to.
type Params struct {
	LinkWidth   int `json:"link_width" toml:"link_width"`
	HeaderFlits int `json:"header_flits" toml:"header_flits"`
	RoutingTime int `json:"routing_time" toml:"routing_time"`

	// Workers > 1 fills packet columns concurrently. The result is identical
	// to a sequential build.
	Workers int `json:"workers,omitempty" toml:"workers"`
}

// DefaultParams returns the default timing parameters.
func DefaultParams() Params {
	return Params{
		LinkWidth:   DefaultLinkWidth,
		HeaderFlits: DefaultHeaderFlits,
		RoutingTime: DefaultRoutingTime,
		Workers:     1,
	}
}

// SetDefaults fills zero-valued fields. HeaderFlits and RoutingTime are only
// defaulted together with LinkWidth, so an explicit zero overhead survives
// when the width is set.
func (p *Params) SetDefaults() {
	if p.LinkWidth == 0 {
		p.LinkWidth = DefaultLinkWidth
		if p.HeaderFlits == 0 {
			p.HeaderFlits = DefaultHeaderFlits
		}
		if p.RoutingTime == 0 {
			p.RoutingTime = DefaultRoutingTime
		}
	}
	if p.Workers == 0 {
		p.Workers = 1
	}
}

// Validate rejects parameters that cannot produce meaningful occupancy.
func (p Params) Validate() error {
	if p.LinkWidth <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "link_width must be positive, got %d", p.LinkWidth)
	}
	if p.HeaderFlits < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "header_flits must not be negative, got %d", p.HeaderFlits)
	}
	if p.RoutingTime < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "routing_time must not be negative, got %d", p.RoutingTime)
	}
	if p.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must not be negative, got %d", p.Workers)
	}
	return nil
}

// Flits returns the number of flits needed to carry bytes of payload:
// ceil(bytes / LinkWidth) plus the header overhead.
func (p Params) Flits(bytes int) int {
	return (bytes+p.LinkWidth-1)/p.LinkWidth + p.HeaderFlits
}

// Occupancy returns the number of slots a packet of the given size holds each
// link on a route of hops mesh links. The value over-approximates the real
// hold time and is the same on every link of the route.
func (p Params) Occupancy(bytes, hops int) int {
	return p.Flits(bytes) + (hops+1)*p.RoutingTime + 1
}
