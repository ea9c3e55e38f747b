package regalloc

import (
	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/liverange"
)

// class is the bookkeeping for the k allocatable physical registers: which
// are free, which virtual register each one holds, that value's next use,
// and its cleanliness. A LIFO free stack hands out registers; it is seeded
// in reverse so allocation yields r0, r1, r2, ... in order.
type class struct {
	sz     int
	free   []bool
	name   []int // virtual register held, or iloc.Invalid
	next   []int // next use of the held virtual register
	cclean []liverange.Class
	stk    []int
}

func newClass(numRegs int) *class {
	c := &class{
		sz:     numRegs,
		free:   make([]bool, 0, numRegs),
		name:   make([]int, 0, numRegs),
		next:   make([]int, 0, numRegs),
		cclean: make([]liverange.Class, 0, numRegs),
		stk:    make([]int, 0, numRegs),
	}
	for i := numRegs - 1; i >= 0; i-- {
		c.free = append(c.free, true)
		c.name = append(c.name, iloc.Invalid)
		c.next = append(c.next, iloc.NoUse)
		c.cclean = append(c.cclean, liverange.Dirty)
		c.stk = append(c.stk, i)
	}
	return c
}

// takeFree pops a register off the free stack; the second result is false
// when every register is occupied
func (c *class) takeFree() (int, bool) {
	if len(c.stk) == 0 {
		return iloc.Invalid, false
	}
	pr := c.stk[len(c.stk)-1]
	c.stk = c.stk[:len(c.stk)-1]
	return pr, true
}

// occupy records that pr now holds vr. The next use is left Invalid; the
// sweep fills it in once the defining operand's next use is known.
func (c *class) occupy(pr, vr int, clean liverange.Class) {
	c.name[pr] = vr
	c.next[pr] = iloc.Invalid
	c.free[pr] = false
	c.cclean[pr] = clean
}

// release returns pr to the free stack and resets its slots to defaults
func (c *class) release(pr int) {
	c.name[pr] = iloc.Invalid
	c.next[pr] = iloc.NoUse
	c.free[pr] = true
	c.cclean[pr] = liverange.Dirty
	c.stk = append(c.stk, pr)
}

// setNext records the next use of the virtual register held in pr
func (c *class) setNext(pr, nu int) {
	c.next[pr] = nu
}

// holding returns the register currently holding vr, or Invalid
func (c *class) holding(vr int) int {
	for pr, name := range c.name {
		if name == vr {
			return pr
		}
	}
	return iloc.Invalid
}
