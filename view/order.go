// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package view

import (
	"fmt"
	"slices"
)

// Direction moves keys through the draw order.
type Direction int

const (
	// Up moves toward the front, the top of the stack.
	Up Direction = iota
	// Down moves toward the back.
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// End is one end of the draw order.
type End int

const (
	// Front is the topmost end, the first key.
	Front End = iota
	// Back is the bottom end, the last key.
	Back
)

// DrawOrder returns the draw order, topmost first.
func (c *Compositor) DrawOrder() []string {
	return slices.Clone(c.order)
}

// SetDrawOrder reorders the layers: keys come first in the given order,
// and layers not listed keep their relative order and are placed at the
// front or the back. Repeated keys are ignored after their first use.
func (c *Compositor) SetDrawOrder(keys []string, unlisted End) error {
	listed := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := c.actors[k]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		listed = append(listed, k)
	}
	rest := make([]string, 0, len(c.order)-len(listed))
	for _, k := range c.order {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	if unlisted == Front {
		c.order = append(rest, listed...)
	} else {
		c.order = append(listed, rest...)
	}
	return nil
}

// RotateDrawOrder shifts the draw order cyclically by one. Down moves
// every key one step toward the back, so the bottom layer wraps to the top;
// Up moves every key one step toward the front.
func (c *Compositor) RotateDrawOrder(d Direction) {
	n := len(c.order)
	if n < 2 {
		return
	}
	if d == Down {
		last := c.order[n-1]
		copy(c.order[1:], c.order[:n-1])
		c.order[0] = last
		return
	}
	first := c.order[0]
	copy(c.order, c.order[1:])
	c.order[n-1] = first
}

// MoveActorInOrder swaps key with its neighbor in direction d. Moving
// past an end does nothing.
func (c *Compositor) MoveActorInOrder(key string, d Direction) error {
	i := slices.Index(c.order, key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	j := i + 1
	if d == Up {
		j = i - 1
	}
	if j < 0 || j >= len(c.order) {
		return nil
	}
	c.order[i], c.order[j] = c.order[j], c.order[i]
	return nil
}

// MoveActorToEnd moves key to the front or the back of the draw order.
func (c *Compositor) MoveActorToEnd(key string, e End) error {
	i := slices.Index(c.order, key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	c.order = slices.Delete(c.order, i, i+1)
	if e == Front {
		c.order = slices.Insert(c.order, 0, key)
	} else {
		c.order = append(c.order, key)
	}
	return nil
}
