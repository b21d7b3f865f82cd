package vm

import "sort"

// ---------------------------------------------------------------------------
// Replication: implicit element-wise iteration over call arguments.
//
// Guides with equal index iterate together (zipped); guides with different
// indices combine as a cartesian product ordered by ascending index, the
// lowest index being the outermost loop. The longest flag selects the
// length policy when zipped collections disagree: pad by repeating the last
// element, or truncate to the shortest.
// ---------------------------------------------------------------------------

// Guide is a replication guide attached to one nesting level of a call
// argument.
type Guide struct {
	Index   int
	Longest bool
}

// ArgSource describes one actual argument for shape computation: its guides
// (one per consumed nesting level) and its collection lengths along the
// first-element chain. An argument without guides contributes no dimension
// and is passed whole on every step.
type ArgSource struct {
	Guides  []Guide
	Lengths []int
}

// argLevel ties an argument's nesting level to a dimension.
type argLevel struct {
	Arg   int
	Level int
}

// Dimension is one iteration axis of a replicated call.
type Dimension struct {
	Index   int
	Args    []argLevel
	Length  int
	Longest bool
}

// ReplicationShape computes the iteration dimensions for a call.
// Dimensions come back sorted by ascending guide index (outermost first).
// A zipped dimension's length is the maximum of its inputs when any guide
// carries the longest flag, otherwise the minimum.
func ReplicationShape(sources []ArgSource) []Dimension {
	byIndex := make(map[int]*Dimension)
	for argPos, src := range sources {
		for level, g := range src.Guides {
			d := byIndex[g.Index]
			if d == nil {
				d = &Dimension{Index: g.Index, Length: -1}
				byIndex[g.Index] = d
			}
			d.Args = append(d.Args, argLevel{Arg: argPos, Level: level})
			if g.Longest {
				d.Longest = true
			}
			length := 1
			if level < len(src.Lengths) {
				length = src.Lengths[level]
			}
			if d.Length < 0 {
				d.Length = length
			} else if d.Longest {
				if length > d.Length {
					d.Length = length
				}
			} else if length < d.Length {
				d.Length = length
			}
		}
	}

	dims := make([]Dimension, 0, len(byIndex))
	for _, d := range byIndex {
		dims = append(dims, *d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Index < dims[j].Index })

	// A later-seen longest flag must win over earlier min-folding, so
	// recompute lengths once flags are final.
	for i := range dims {
		d := &dims[i]
		length := -1
		for _, al := range d.Args {
			l := 1
			if al.Level < len(sources[al.Arg].Lengths) {
				l = sources[al.Arg].Lengths[al.Level]
			}
			if length < 0 {
				length = l
			} else if d.Longest {
				if l > length {
					length = l
				}
			} else if l < length {
				length = l
			}
		}
		d.Length = length
	}
	return dims
}

// autoReplicationIndex is the implicit guide index used by rank-based
// auto-replication.
const autoReplicationIndex = 1

// AutoReplicate fills in implicit guides for unannotated collection
// arguments whose formal parameter is scalar. It only engages when no
// explicit guide anywhere on the call makes the intent unambiguous:
// if any argument carries explicit guides, sources come back unchanged.
// formalRanks holds the declared rank of each formal (0 = scalar).
func AutoReplicate(sources []ArgSource, formalRanks []int) []ArgSource {
	for _, src := range sources {
		if len(src.Guides) > 0 {
			return sources
		}
	}
	out := make([]ArgSource, len(sources))
	copy(out, sources)
	for i := range out {
		if i >= len(formalRanks) {
			break
		}
		actualRank := len(out[i].Lengths)
		if actualRank > formalRanks[i] {
			out[i].Guides = []Guide{{Index: autoReplicationIndex}}
		}
	}
	return out
}

// ApplyLongestPolicy returns sources with the longest flag set on every
// guide. The executive applies it when the manifest's replication policy is
// "longest"; guides the author flagged explicitly are unaffected either way.
func ApplyLongestPolicy(sources []ArgSource) []ArgSource {
	out := make([]ArgSource, len(sources))
	copy(out, sources)
	for i := range out {
		if len(out[i].Guides) == 0 {
			continue
		}
		gs := make([]Guide, len(out[i].Guides))
		copy(gs, out[i].Guides)
		for j := range gs {
			gs[j].Longest = true
		}
		out[i].Guides = gs
	}
	return out
}

// lengthChain returns a value's collection lengths along the first-element
// chain, one entry per nesting level.
func lengthChain(v Value) []int {
	var lens []int
	for v.Type == TypeArray && v.ArrayVal != nil {
		lens = append(lens, len(v.ArrayVal.Elements))
		if len(v.ArrayVal.Elements) == 0 {
			break
		}
		v = v.ArrayVal.Elements[0]
	}
	return lens
}
