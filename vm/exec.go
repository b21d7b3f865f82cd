package vm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/lattice/compiler"
	"github.com/tliron/commonlog"
)

// ErrSuspended is returned up the execution stack when a break request
// suspends a replicated call between iteration steps. The continuation is
// parked on the executive; Resume re-enters it.
var ErrSuspended = errors.New("vm: execution suspended")

// maxCallDepth bounds procedure recursion in the reference executor.
const maxCallDepth = 512

// Executive owns the runtime state of one session: the scope tree's
// instruction streams, the dependency graph and its engine, and symbol
// values. It is single-threaded; the production VM drives the same
// structures through the identical store-callback contract.
type Executive struct {
	Arena   *compiler.Arena
	Graph   *Graph
	Engine  *Engine
	Streams map[int]*Stream

	// PropagationLimit bounds re-executions per propagation pass
	// (0 = unbounded). Configured from the manifest.
	PropagationLimit int

	// DefaultLongest selects the session-wide replication length policy:
	// when true, zipped collections pad to the longest input instead of
	// truncating to the shortest. Configured from the manifest.
	DefaultLongest bool

	// Cancelled is polled between statements and iteration steps.
	Cancelled func() bool

	// NodeHook, when set, observes every top-level node execution; the
	// debugger uses it to follow propagation order.
	NodeHook func(*GraphNode)

	values map[*compiler.Symbol]Value

	// applyUpdate is true while the executive is re-executing dependents
	// rather than running fresh statements.
	applyUpdate bool

	// runningBlock is the block currently executing; delta reset points
	// it back at the first non-reentrant global block.
	runningBlock int

	// mainScopes counts the blocks that never go out of scope.
	mainScopes int

	// Suspension state for stepped replicated calls.
	breakRequested bool
	suspended      *Continuation
	pendingNodes   []*GraphNode

	callDepth       int
	onSymbolRemoved []func(*compiler.Symbol)

	log commonlog.Logger
}

// NewExecutive creates an executive over a fresh graph for the given arena.
func NewExecutive(arena *compiler.Arena) *Executive {
	g := NewGraph()
	return &Executive{
		Arena:   arena,
		Graph:   g,
		Engine:  NewEngine(g, arena),
		Streams: make(map[int]*Stream),
		values:  make(map[*compiler.Symbol]Value),
		log:     commonlog.GetLogger("lattice.exec"),
	}
}

// Value returns the current value bound to a symbol.
func (x *Executive) Value(sym *compiler.Symbol) (Value, bool) {
	v, ok := x.values[sym]
	return v, ok
}

// ValueOf looks a name up from the global scope and returns its value.
func (x *Executive) ValueOf(name string) (Value, bool) {
	sym, ok := compiler.ResolveSymbol(x.Arena, name, compiler.NoClass, compiler.GlobalFunction, 0)
	if !ok {
		return Value{}, false
	}
	return x.Value(sym)
}

// OnSymbolRemoved subscribes to symbol-removal notifications, published on
// invalidation so externally-owned objects referenced only by removed
// bindings can be released.
func (x *Executive) OnSymbolRemoved(fn func(*compiler.Symbol)) {
	x.onSymbolRemoved = append(x.onSymbolRemoved, fn)
}

// RequestBreak asks the executive to suspend at the next iteration-step
// boundary of a replicated call.
func (x *Executive) RequestBreak() { x.breakRequested = true }

// Suspended reports whether execution is parked on a continuation.
func (x *Executive) Suspended() bool { return x.suspended != nil || len(x.pendingNodes) > 0 }

// Continuation returns the parked continuation, if any.
func (x *Executive) Continuation() *Continuation { return x.suspended }

func (x *Executive) cancelled() bool {
	return x.Cancelled != nil && x.Cancelled()
}

// RunScope executes the scope's graph nodes (and those of its nested
// non-function blocks) in declaration order, propagating updates after each
// store. It returns ErrSuspended when a break request parked execution.
func (x *Executive) RunScope(scopeID int) error {
	x.runningBlock = scopeID
	return x.runNodes(x.scopeExecutionList(scopeID))
}

// Resume continues execution after a suspend: the node that held the parked
// continuation re-executes, the continuation picks up at its saved cursor,
// and the remaining nodes follow.
func (x *Executive) Resume() error {
	x.breakRequested = false
	nodes := x.pendingNodes
	x.pendingNodes = nil
	if err := x.runNodes(nodes); err != nil {
		return err
	}
	return x.drain()
}

func (x *Executive) runNodes(nodes []*GraphNode) error {
	for i, n := range nodes {
		if x.cancelled() {
			x.log.Info("execution stopped by cancellation request")
			return nil
		}
		if !n.Active {
			continue
		}
		// Stores earlier in the pass may have scheduled this node; the
		// in-order run covers it.
		x.Engine.Unschedule(n)
		x.Engine.BeginNode(n)
		_, _, err := x.executeNode(n)
		x.Engine.EndNode(n)
		if errors.Is(err, ErrSuspended) {
			x.pendingNodes = nodes[i:]
			return ErrSuspended
		}
		if err != nil {
			return err
		}
	}
	return x.drain()
}

// ReExecuteNode runs one node and propagates its updates: the entry point
// the VM re-bounces into after an interactive edit of a single statement.
func (x *Executive) ReExecuteNode(n *GraphNode) error {
	x.Engine.BeginNode(n)
	_, _, err := x.executeNode(n)
	x.Engine.EndNode(n)
	if err != nil {
		return err
	}
	return x.drain()
}

func (x *Executive) drain() error {
	return x.Engine.Drain(x.reexecute, x.PropagationLimit, x.Cancelled)
}

func (x *Executive) reexecute(n *GraphNode) error {
	x.applyUpdate = true
	defer func() { x.applyUpdate = false }()
	_, _, err := x.executeNode(n)
	if errors.Is(err, ErrSuspended) {
		x.Engine.Reschedule(n)
	}
	return err
}

// scopeExecutionList flattens the scope's own nodes and those of nested
// Construct/Language blocks (function bodies run only when called) into
// declaration order.
func (x *Executive) scopeExecutionList(scopeID int) []*GraphNode {
	var nodes []*GraphNode
	var walk func(int)
	walk = func(id int) {
		b := x.Arena.Block(id)
		if b.Detached {
			return
		}
		if id != scopeID && b.Kind == compiler.BlockFunction {
			return
		}
		nodes = append(nodes, x.Graph.NodesInScope(id)...)
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(scopeID)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].DeclOrder < nodes[j].DeclOrder })
	return nodes
}

// executeNode interprets the node's instruction window. The second result
// reports whether a return instruction ended the body.
func (x *Executive) executeNode(n *GraphNode) (Value, bool, error) {
	stream := x.Streams[n.ScopeID]
	if stream == nil || n.Last > len(stream.Code) {
		return Value{}, false, fmt.Errorf("vm: node %d has no instruction window", n.ID)
	}
	if x.NodeHook != nil && x.callDepth == 0 {
		x.NodeHook(n)
	}

	var stack []Value
	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for pc := n.First; pc < n.Last; pc++ {
		ins := stream.Code[pc]
		switch ins.Op {
		case OpNop:

		case OpPop:
			if len(stack) > 0 {
				pop()
			}

		case OpConst:
			push(stream.Consts[ins.A])

		case OpConstNull:
			push(NullValue())

		case OpLoadSym:
			sym := stream.Syms[ins.A]
			v, ok := x.values[sym]
			if !ok {
				v = NullValue()
			}
			push(v)

		case OpStoreSym:
			sym := stream.Syms[ins.A]
			x.values[sym] = pop()
			if x.callDepth == 0 {
				x.Engine.NotifyStore(n, sym)
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpEq, OpLt, OpGt:
			right := pop()
			left := pop()
			push(evalBinary(ins.Op, left, right))

		case OpNeg:
			v := pop()
			if v.Type == TypeInt {
				push(IntValue(-v.IntVal))
			} else {
				push(FloatValue(-v.AsFloat()))
			}

		case OpNot:
			push(BoolValue(!pop().IsTrue()))

		case OpMakeArray:
			count := int(ins.A)
			elems := make([]Value, count)
			for i := count - 1; i >= 0; i-- {
				elems[i] = pop()
			}
			push(ArrayValue(elems))

		case OpCall:
			site := stream.Calls[ins.A]
			args := make([]Value, site.Argc)
			for i := site.Argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			v, err := x.call(n, site, args)
			if err != nil {
				return Value{}, false, err
			}
			push(v)

		case OpRet:
			return pop(), true, nil

		default:
			return Value{}, false, fmt.Errorf("vm: unknown opcode %s", ins.Op)
		}
	}
	return NullValue(), false, nil
}

// call resolves the procedure nearest to the node's scope and invokes it,
// replicating over guided or auto-replicated arguments.
func (x *Executive) call(n *GraphNode, site *CallSite, args []Value) (Value, error) {
	argTypes := make([]compiler.TypeSpec, len(args))
	for i, a := range args {
		argTypes[i] = TypeSpecOf(a)
	}
	proc, ok := compiler.ResolveProcedure(x.Arena, site.Name, argTypes, n.ScopeID)
	if !ok {
		return Value{}, fmt.Errorf("vm: no procedure %s matching %d argument(s)", site.Name, len(args))
	}

	sources := make([]ArgSource, len(args))
	for i := range args {
		if i < len(site.Guides) {
			sources[i].Guides = site.Guides[i]
		}
		sources[i].Lengths = lengthChain(args[i])
	}
	formalRanks := make([]int, len(proc.Params))
	for i, p := range proc.Params {
		formalRanks[i] = p.Rank
	}
	sources = AutoReplicate(sources, formalRanks)
	if x.DefaultLongest {
		sources = ApplyLongestPolicy(sources)
	}

	invoke := func(stepArgs []Value) (Value, error) {
		return x.invokeProcedure(proc, stepArgs)
	}

	dims := ReplicationShape(sources)
	if len(dims) == 0 {
		return invoke(args)
	}

	cont := x.suspended
	if cont != nil && cont.ScopeID == n.ScopeID && cont.ExprID == site.ExprID {
		// Resuming the parked call: keep its cursor and partial results.
		x.suspended = nil
	} else {
		cont = NewContinuation(site.Name, n.ScopeID, site.ExprID, args, sources)
	}

	for !cont.Done() {
		if x.cancelled() {
			return cont.Result(), nil
		}
		if x.breakRequested {
			x.suspended = cont
			return Value{}, ErrSuspended
		}
		if _, err := cont.Step(invoke); err != nil {
			return Value{}, err
		}
	}
	return cont.Result(), nil
}

// invokeProcedure binds arguments to the function block's parameter symbols
// and runs the body's nodes in declaration order. Stores inside a call bind
// function locals and never feed update propagation; only the outer
// assignment's own store triggers dependents.
func (x *Executive) invokeProcedure(p *compiler.Procedure, args []Value) (Value, error) {
	if x.callDepth >= maxCallDepth {
		return Value{}, fmt.Errorf("vm: call depth exceeded invoking %s", p.Name)
	}
	fnBlock := x.Arena.Block(p.ScopeID)
	if fnBlock.Detached {
		return Value{}, fmt.Errorf("vm: procedure %s has been invalidated", p.Name)
	}

	type saved struct {
		sym *compiler.Symbol
		val Value
		had bool
	}
	var frame []saved
	for i, param := range p.Def.Params {
		sym, ok := fnBlock.Symbols.Lookup(param.Name, compiler.NoClass, fnBlock.ID)
		if !ok {
			return Value{}, fmt.Errorf("vm: missing parameter symbol %s in %s", param.Name, p.Name)
		}
		old, had := x.values[sym]
		frame = append(frame, saved{sym, old, had})
		if i < len(args) {
			x.values[sym] = args[i]
		} else {
			x.values[sym] = NullValue()
		}
	}

	x.callDepth++
	ret := NullValue()
	var err error
	for _, n := range x.scopeExecutionList(p.ScopeID) {
		if !n.Active {
			continue
		}
		var v Value
		var returned bool
		v, returned, err = x.executeNode(n)
		if err != nil {
			break
		}
		if returned {
			ret = v
			break
		}
	}
	x.callDepth--

	for _, f := range frame {
		if f.had {
			x.values[f.sym] = f.val
		} else {
			delete(x.values, f.sym)
		}
	}
	return ret, err
}

// concatText renders a concatenation operand: strings contribute their
// contents unquoted, everything else its diagnostic form.
func concatText(v Value) string {
	if v.Type == TypeString {
		return v.StringVal
	}
	return v.String()
}

func evalBinary(op Opcode, left, right Value) Value {
	switch op {
	case OpAdd:
		if left.Type == TypeString || right.Type == TypeString {
			return StringValue(concatText(left) + concatText(right))
		}
		if left.Type == TypeInt && right.Type == TypeInt {
			return IntValue(left.IntVal + right.IntVal)
		}
		return FloatValue(left.AsFloat() + right.AsFloat())
	case OpSub:
		if left.Type == TypeInt && right.Type == TypeInt {
			return IntValue(left.IntVal - right.IntVal)
		}
		return FloatValue(left.AsFloat() - right.AsFloat())
	case OpMul:
		if left.Type == TypeInt && right.Type == TypeInt {
			return IntValue(left.IntVal * right.IntVal)
		}
		return FloatValue(left.AsFloat() * right.AsFloat())
	case OpDiv:
		if right.AsFloat() == 0 {
			return NullValue()
		}
		return FloatValue(left.AsFloat() / right.AsFloat())
	case OpEq:
		return BoolValue(left.Equals(right))
	case OpLt:
		if left.Type == TypeString && right.Type == TypeString {
			return BoolValue(left.StringVal < right.StringVal)
		}
		return BoolValue(left.AsFloat() < right.AsFloat())
	case OpGt:
		if left.Type == TypeString && right.Type == TypeString {
			return BoolValue(left.StringVal > right.StringVal)
		}
		return BoolValue(left.AsFloat() > right.AsFloat())
	}
	return NullValue()
}
