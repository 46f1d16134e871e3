package collaborator

import (
	"github.com/taskloop/scheduler"
)

// Node is anything with children, walked depth-first by Walker.
type Node interface {
	Children() []Node
}

// Walker drives a depth-first traversal of a Node tree as Normal-priority
// scheduler work, yielding back to the host whenever the running
// callback's Deadline runs out of frame budget and resuming via a
// continuation, rather than recursing the whole tree in one synchronous
// call.
type Walker struct {
	pool  *Pool
	visit func(Node, int)
}

// NewWalker constructs a Walker that calls visit for every node reached,
// with its depth from root.
func NewWalker(visit func(node Node, depth int)) *Walker {
	return &Walker{pool: NewPool(), visit: visit}
}

// stackEntry pairs an explicit-stack frame (from the pool) with the
// children slice and next-child index it is currently iterating.
type stackEntry struct {
	f        *frame
	children []Node
	next     int
}

// Walk enqueues root's traversal on sched at Normal priority and returns the
// handle, the same way any other caller of [scheduler.Scheduler.ScheduleCallback]
// would. The traversal itself cooperates with the scheduler's frame budget
// via the Deadline argument its callback receives.
func (w *Walker) Walk(sched *scheduler.Scheduler, root Node) (scheduler.CallbackHandle, error) {
	stack := []*stackEntry{w.push(root, 0)}
	return sched.ScheduleCallback(scheduler.Normal, w.step(stack))
}

func (w *Walker) push(n Node, depth int) *stackEntry {
	f := w.pool.acquire()
	f.Node = n
	f.Depth = depth
	return &stackEntry{f: f, children: n.Children()}
}

// step returns a CallbackFunc closing over stack, the in-progress explicit
// traversal stack. Each invocation processes nodes until the stack is
// empty (traversal complete, returns nil) or the Deadline runs out of time
// (returns itself as a continuation, to resume on the next slice).
func (w *Walker) step(stack []*stackEntry) scheduler.CallbackFunc {
	return func(d *scheduler.Deadline) scheduler.CallbackFunc {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if !top.f.Visited {
				top.f.Visited = true
				w.visit(top.f.Node, top.f.Depth)
			}

			if top.next < len(top.children) {
				child := top.children[top.next]
				top.next++
				stack = append(stack, w.push(child, top.f.Depth+1))
			} else {
				w.pool.release(top.f)
				stack = stack[:len(stack)-1]
			}

			if d.TimeRemaining() <= 0 && !d.DidTimeout() && len(stack) > 0 {
				return w.step(stack)
			}
		}
		return nil
	}
}
