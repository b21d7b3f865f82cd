package compiler

import "testing"

func TestArenaStartsWithGlobalBlock(t *testing.T) {
	a := NewArena()
	if a.Len() != 1 {
		t.Fatalf("new arena has %d blocks, want 1", a.Len())
	}
	g := a.Global()
	if g.ID != 0 || g.Kind != BlockGlobal || g.Parent != NoParent {
		t.Errorf("global block = %+v", g)
	}
}

func TestNewBlockLinksParentAndChild(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	body := a.NewBlock(BlockConstruct, fn.ID)

	if fn.Parent != 0 || body.Parent != fn.ID {
		t.Error("parent links wrong")
	}
	if len(a.Global().Children) != 1 || a.Global().Children[0] != fn.ID {
		t.Errorf("global children = %v, want [%d]", a.Global().Children, fn.ID)
	}
	if len(fn.Children) != 1 || fn.Children[0] != body.ID {
		t.Errorf("function children = %v, want [%d]", fn.Children, body.ID)
	}
}

func TestNewBlockBadParentPanics(t *testing.T) {
	a := NewArena()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a parent outside the arena")
		}
	}()
	a.NewBlock(BlockConstruct, 42)
}

func TestDetachMarksSubtreeAndUnlinks(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	inner := a.NewBlock(BlockConstruct, fn.ID)
	other := a.NewBlock(BlockFunction, 0)

	a.Detach(fn.ID)

	if !fn.Detached || !inner.Detached {
		t.Error("detach did not mark the whole subtree")
	}
	if other.Detached {
		t.Error("detach marked a sibling")
	}
	if len(a.Global().Children) != 1 || a.Global().Children[0] != other.ID {
		t.Errorf("global children = %v, want [%d]", a.Global().Children, other.ID)
	}
	// IDs stay stable; the block is still addressable.
	if a.Block(fn.ID) != fn {
		t.Error("detached block lost its arena slot")
	}
}

func TestEnclosingFunction(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	loop := a.NewBlock(BlockConstruct, fn.ID)
	lang := a.NewBlock(BlockLanguage, 0)

	cases := []struct {
		name string
		id   int
		want int
	}{
		{"function block itself", fn.ID, fn.ID},
		{"construct inside function", loop.ID, fn.ID},
		{"global", 0, NoParent},
		{"language block outside any function", lang.ID, NoParent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.EnclosingFunction(tc.id); got != tc.want {
				t.Errorf("EnclosingFunction(%d) = %d, want %d", tc.id, got, tc.want)
			}
		})
	}
}

func TestAssignRuntimeIndicesBreadthFirst(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)      // depth 1
	lang := a.NewBlock(BlockLanguage, 0)    // depth 1
	deep := a.NewBlock(BlockConstruct, fn.ID) // depth 2

	total := a.AssignRuntimeIndices()
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if a.RuntimeSlots() != 3 {
		t.Errorf("RuntimeSlots = %d, want 3", a.RuntimeSlots())
	}

	// Breadth-first: both depth-1 blocks come before the depth-2 block.
	if fn.RuntimeIndex != 0 || lang.RuntimeIndex != 1 || deep.RuntimeIndex != 2 {
		t.Errorf("indices = fn %d, lang %d, deep %d; want 0, 1, 2",
			fn.RuntimeIndex, lang.RuntimeIndex, deep.RuntimeIndex)
	}
	if a.Global().RuntimeIndex != NoRuntimeIndex {
		t.Errorf("global got runtime index %d", a.Global().RuntimeIndex)
	}
}

func TestAssignRuntimeIndicesSkipsDetached(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	keep := a.NewBlock(BlockFunction, 0)
	a.Detach(fn.ID)

	if total := a.AssignRuntimeIndices(); total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if keep.RuntimeIndex != 0 {
		t.Errorf("surviving block index = %d, want 0", keep.RuntimeIndex)
	}
}

func TestWalkSkipsDetachedSubtrees(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	a.NewBlock(BlockConstruct, fn.ID)
	keep := a.NewBlock(BlockLanguage, 0)
	a.Detach(fn.ID)

	var visited []int
	a.Walk(func(b *CodeBlock) { visited = append(visited, b.ID) })

	want := []int{0, keep.ID}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i, w := range want {
		if visited[i] != w {
			t.Fatalf("visited = %v, want %v", visited, want)
		}
	}
}

func TestBlockKindString(t *testing.T) {
	cases := map[BlockKind]string{
		BlockGlobal:    "global",
		BlockLanguage:  "language",
		BlockFunction:  "function",
		BlockConstruct: "construct",
		BlockKind(99):  "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
