// Package heap is Kozi's mark-and-sweep garbage collector. It owns every
// heap-allocated Object (currently only interned strings; the Kind field
// reserves room for function/list/object kinds a richer language would add,
// per the design note on cyclic object graphs) and exposes a string-interning
// allocator. It knows nothing about the language's Value type — the VM
// supplies a RootTracer that walks its own roots and calls back with the
// *Object handles it finds, keeping this package reusable if Value ever
// grows more heap kinds.
package heap

import "os"

// ObjKind tags the kind of a heap Object.
type ObjKind uint8

const (
	ObjString ObjKind = iota
)

const (
	heapInit   = 1 << 20 // 1 MiB, per the spec's next_gc starting threshold
	growFactor = 2

	// objOverhead approximates a heap object's header cost (kind tag, mark
	// bit, next pointer) for bytes_allocated bookkeeping; Go's runtime
	// doesn't expose struct overhead precisely, so this is a representative
	// constant rather than unsafe.Sizeof on a type whose layout isn't part
	// of the public contract.
	objOverhead = 24
)

// Object is a GC-tracked heap allocation: a mark bit, an intrusive next
// pointer for the one global objects list, an object-kind tag, and an owned
// byte sequence (the string's contents, when Kind == ObjString). Strings are
// immutable once allocated.
type Object struct {
	Kind   ObjKind
	Chars  []byte
	marked bool
	next   *Object
}

// RootTracer is implemented by the VM. The GC invokes TraceRoots at the
// start of every collection; the VM must call mark on every heap object
// reachable from its operand stack, its globals table, and the current
// function's constant pool.
type RootTracer interface {
	TraceRoots(mark func(*Object))
}

// GC is a non-moving, non-incremental, mark-and-sweep collector.
type GC struct {
	objects        *Object
	strings        map[string]*Object
	bytesAllocated int
	nextGC         int
	tracer         RootTracer
	stress         bool
}

// New creates a GC with an empty heap. KOZI_GC_STRESS, if set, forces a
// collection before every allocation, which is useful for bisecting
// GC-safety bugs (see the design note on GC-safe points).
func New() *GC {
	return &GC{
		strings: make(map[string]*Object),
		nextGC:  heapInit,
		stress:  os.Getenv("KOZI_GC_STRESS") != "",
	}
}

// SetRootTracer registers the VM as the source of GC roots. Collection
// before this is called simply finds no roots and frees everything.
func (g *GC) SetRootTracer(t RootTracer) {
	g.tracer = t
}

// Intern returns the heap handle for a string with the given contents,
// allocating and interning it if it isn't already present. Two calls with
// byte-equal contents always return the identical handle.
func (g *GC) Intern(s []byte) *Object {
	if obj, ok := g.strings[string(s)]; ok {
		return obj
	}

	if g.stress || g.bytesAllocated+objOverhead+len(s) > g.nextGC {
		g.Collect()
	}

	owned := make([]byte, len(s))
	copy(owned, s)

	obj := &Object{Kind: ObjString, Chars: owned, next: g.objects}
	g.objects = obj
	g.bytesAllocated += objOverhead + len(owned)
	g.strings[string(owned)] = obj
	return obj
}

// Mark marks obj live. Marking is idempotent: an already-marked object is
// not revisited. Strings have no outgoing references, so this never needs a
// worklist today, but a future object kind with references must push
// through one instead of marking recursively (see the design note on cyclic
// object graphs).
func (g *GC) Mark(obj *Object) {
	if obj == nil || obj.marked {
		return
	}
	obj.marked = true
}

// Collect runs one mark-and-sweep cycle: mark every object reachable from
// the VM's roots, sweep everything unmarked, then grow the next-collection
// threshold from the surviving byte count.
func (g *GC) Collect() {
	if g.tracer != nil {
		g.tracer.TraceRoots(g.Mark)
	}
	g.sweep()

	next := g.bytesAllocated * growFactor
	if next < heapInit {
		next = heapInit
	}
	g.nextGC = next
}

// sweep walks the objects list, unlinking and freeing everything left
// unmarked, and clears the mark bit on every survivor in the same pass
// (equivalent to running phase 3, "reset marks," separately, since nothing
// between sweep and the next mark phase can observe a survivor's bit).
func (g *GC) sweep() {
	var prev *Object
	cur := g.objects
	for cur != nil {
		if cur.marked {
			cur.marked = false
			prev = cur
			cur = cur.next
			continue
		}

		dead := cur
		cur = cur.next
		if prev == nil {
			g.objects = cur
		} else {
			prev.next = cur
		}

		delete(g.strings, string(dead.Chars))
		g.bytesAllocated -= objOverhead + len(dead.Chars)
		dead.next = nil
	}
}

// BytesAllocated reports the live byte count, for tests and diagnostics.
func (g *GC) BytesAllocated() int { return g.bytesAllocated }

// NextGC reports the current collection threshold.
func (g *GC) NextGC() int { return g.nextGC }

// LiveObjects counts objects currently reachable from the objects list, for
// tests that assert on sweep behavior.
func (g *GC) LiveObjects() int {
	n := 0
	for o := g.objects; o != nil; o = o.next {
		n++
	}
	return n
}
