// Package pwmpool allocates the board's fixed set of hardware PWM channels
// to actuator drivers (spec §4.2). Grounded on the teacher's PWMHandle/
// PinFunc claim model (services/hal/internal/core/resources.go), narrowed to
// just the channel-counting half of that contract — channel-to-pin routing
// on real ESP32 LEDC hardware is handled by the board driver, not this pool.
package pwmpool

import "trabajante/internal/errcode"

// Pool tracks how many of the board's PWM channels are in use.
type Pool struct {
	capacity int
	inUse    map[int]int // channel -> gpio
}

func New(capacity int) *Pool {
	return &Pool{capacity: capacity, inUse: make(map[int]int)}
}

// Acquire assigns the lowest free channel to gpio, or fails with
// PWMChannelFull when the pool is exhausted.
func (p *Pool) Acquire(gpio int) (channel int, err error) {
	for ch := 0; ch < p.capacity; ch++ {
		if _, taken := p.inUse[ch]; !taken {
			p.inUse[ch] = gpio
			return ch, nil
		}
	}
	return -1, errcode.New(errcode.PWMChannelFull, "Acquire", "no free PWM channel")
}

// Release frees the channel bound to gpio, if any.
func (p *Pool) Release(gpio int) {
	for ch, g := range p.inUse {
		if g == gpio {
			delete(p.inUse, ch)
			return
		}
	}
}

// InUse reports how many channels are currently allocated.
func (p *Pool) InUse() int { return len(p.inUse) }

// Capacity reports the total channel count.
func (p *Pool) Capacity() int { return p.capacity }
