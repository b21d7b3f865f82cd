package vm

import "fmt"

// ---------------------------------------------------------------------------
// Continuation: resumable iteration state for a replicated call.
//
// Stepped (debugger) execution suspends between iteration steps; the
// continuation holds the cursor, the saved arguments, and the call-site
// identity so the session can resume exactly where it left off. One
// continuation belongs to exactly one active call frame and is never
// shared.
// ---------------------------------------------------------------------------

// Continuation is the in-progress state of one replicated call.
type Continuation struct {
	// CallName/ScopeID/ExprID identify the call site being resumed.
	CallName string
	ScopeID  int
	ExprID   int

	dims    []Dimension
	cursor  []int // current index per dimension, ascending guide index
	args    []Value
	sources []ArgSource
	results []Value
	done    bool
}

// NewContinuation builds the iteration state for a call with the given
// saved actual arguments and shape sources. The caller must only construct
// one when ReplicationShape yields at least one dimension.
func NewContinuation(name string, scopeID, exprID int, args []Value, sources []ArgSource) *Continuation {
	dims := ReplicationShape(sources)
	if len(dims) == 0 {
		panic("vm: continuation over a call with no replication dimensions")
	}
	c := &Continuation{
		CallName: name,
		ScopeID:  scopeID,
		ExprID:   exprID,
		dims:     dims,
		cursor:   make([]int, len(dims)),
		args:     append([]Value(nil), args...),
		sources:  sources,
	}
	for _, d := range dims {
		if d.Length <= 0 {
			c.done = true
		}
	}
	return c
}

// Done reports whether the iteration has completed.
func (c *Continuation) Done() bool { return c.done }

// Progress returns the completed step count and the total step count.
func (c *Continuation) Progress() (step, total int) {
	total = 1
	for _, d := range c.dims {
		total *= d.Length
	}
	return len(c.results), total
}

// StepArgs materializes the arguments for the current iteration step. For a
// guided argument, each guide level selects one element along the matching
// dimension; an index past the end repeats the last element (the longest
// policy's padding). Unguided arguments pass through whole.
func (c *Continuation) StepArgs() []Value {
	out := make([]Value, len(c.args))
	for i, arg := range c.args {
		out[i] = c.element(i, arg)
	}
	return out
}

func (c *Continuation) element(argPos int, v Value) Value {
	src := c.sources[argPos]
	for level := range src.Guides {
		dimPos := c.dimFor(src.Guides[level].Index)
		if dimPos < 0 {
			continue
		}
		if v.Type != TypeArray || v.ArrayVal == nil || len(v.ArrayVal.Elements) == 0 {
			return v
		}
		idx := c.cursor[dimPos]
		if idx >= len(v.ArrayVal.Elements) {
			idx = len(v.ArrayVal.Elements) - 1
		}
		v = v.ArrayVal.Elements[idx]
	}
	return v
}

func (c *Continuation) dimFor(index int) int {
	for i, d := range c.dims {
		if d.Index == index {
			return i
		}
	}
	return -1
}

// Step invokes the target once for the current cursor, records the result,
// and advances the cursor odometer-style (innermost dimension fastest).
// It reports whether the iteration has now completed.
func (c *Continuation) Step(invoke func(args []Value) (Value, error)) (bool, error) {
	if c.done {
		return true, nil
	}
	result, err := invoke(c.StepArgs())
	if err != nil {
		return false, fmt.Errorf("replicated call %s step %d: %w", c.CallName, len(c.results), err)
	}
	c.results = append(c.results, result)
	c.advance()
	return c.done, nil
}

func (c *Continuation) advance() {
	for i := len(c.cursor) - 1; i >= 0; i-- {
		c.cursor[i]++
		if c.cursor[i] < c.dims[i].Length {
			return
		}
		c.cursor[i] = 0
	}
	c.done = true
}

// Run drives Step to completion, polling cancelled between steps.
func (c *Continuation) Run(invoke func(args []Value) (Value, error), cancelled func() bool) error {
	for !c.done {
		if cancelled != nil && cancelled() {
			return nil
		}
		if _, err := c.Step(invoke); err != nil {
			return err
		}
	}
	return nil
}

// Result assembles the collected results into a collection matching the
// iteration shape: nested arrays, the outermost dimension first.
func (c *Continuation) Result() Value {
	lengths := make([]int, len(c.dims))
	for i, d := range c.dims {
		lengths[i] = d.Length
	}
	v, _ := reshape(c.results, lengths)
	return v
}

func reshape(flat []Value, lengths []int) (Value, []Value) {
	if len(lengths) == 1 {
		n := lengths[0]
		if n > len(flat) {
			n = len(flat)
		}
		return ArrayValue(append([]Value(nil), flat[:n]...)), flat[n:]
	}
	elems := make([]Value, 0, lengths[0])
	rest := flat
	for i := 0; i < lengths[0]; i++ {
		var v Value
		v, rest = reshape(rest, lengths[1:])
		elems = append(elems, v)
	}
	return ArrayValue(elems), rest
}
