package minijs

/*
#include <stdlib.h>
#include "bridge.h"
*/
import "C"
import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// Context is a single JavaScript execution environment: one engine runtime,
// one global object, one live boundary. A Context is not safe for concurrent
// use; callers serialize access themselves. Close must be called exactly
// once, after every Value and ValueDesc produced by the context has been
// released.
type Context struct {
	rt     *C.JSRuntime
	ref    *C.JSContext
	closed atomic.Bool
	data   map[uint32]any
}

// ContextOption tunes the runtime backing a new context.
type ContextOption func(*contextOptions)

type contextOptions struct {
	maxStackSize uint32
	gcThreshold  int64
}

// WithMaxStackSize caps the engine stack, in bytes.
func WithMaxStackSize(size uint32) ContextOption {
	return func(o *contextOptions) { o.maxStackSize = size }
}

// WithGCThreshold sets the allocation threshold that triggers automatic
// garbage collection. Pass -1 to disable automatic GC entirely; RunGC still
// works.
func WithGCThreshold(threshold int64) ContextOption {
	return func(o *contextOptions) { o.gcThreshold = threshold }
}

// NewContext creates a fresh runtime and context and registers the Go
// function trampoline class on it. The calling goroutine is locked to its
// OS thread for the lifetime of the process, matching the engine's thread
// affinity rules.
func NewContext(opts ...ContextOption) *Context {
	runtime.LockOSThread()
	bootstrap()

	var options contextOptions
	for _, opt := range opts {
		opt(&options)
	}

	rt := C.JS_NewRuntime()
	if rt == nil {
		panic("minijs: failed to create runtime")
	}
	if options.maxStackSize > 0 {
		C.JS_SetMaxStackSize(rt, C.size_t(options.maxStackSize))
	}
	if options.gcThreshold != 0 {
		C.JS_SetGCThreshold(rt, C.size_t(options.gcThreshold))
	}
	if C.RegisterFunctionClass(rt) != 0 {
		C.JS_FreeRuntime(rt)
		panic("minijs: failed to register function class")
	}
	ref := C.JS_NewContext(rt)
	if ref == nil {
		C.JS_FreeRuntime(rt)
		panic("minijs: failed to create context")
	}
	return &Context{rt: rt, ref: ref, data: make(map[uint32]any)}
}

// Close tears the context down. Every Go function binding still registered
// against this context is finalized first, in arbitrary order, so host
// resources are released even for functions the engine never collected.
// Bindings already finalized by garbage collection are skipped. Close is
// idempotent.
func (ctx *Context) Close() {
	if !ctx.closed.CompareAndSwap(false, true) {
		return
	}
	finalizeContextBindings(ctx)
	C.JS_FreeContext(ctx.ref)
	C.JS_FreeRuntime(ctx.rt)
}

// RunGC forces an engine garbage collection pass. Trampoline objects that
// became unreachable are finalized during the pass.
func (ctx *Context) RunGC() {
	C.JS_RunGC(ctx.rt)
}

// SetData stashes an arbitrary host value on the context under a small
// integer slot, for retrieval from inside dispatchers.
func (ctx *Context) SetData(slot uint32, v any) {
	ctx.data[slot] = v
}

// GetData returns the host value stored under slot, or nil.
func (ctx *Context) GetData(slot uint32) any {
	return ctx.data[slot]
}

// EvalOption configures a single Eval call.
type EvalOption func(*evalOptions)

type evalOptions struct {
	filename string
	strict   bool
}

// EvalFilename sets the script name reported in stack traces.
// The default is "<eval>".
func EvalFilename(name string) EvalOption {
	return func(o *evalOptions) { o.filename = name }
}

// EvalStrict evaluates the script in strict mode.
func EvalStrict() EvalOption {
	return func(o *evalOptions) { o.strict = true }
}

// Eval compiles and runs a script against the global object. The outcome is
// always a Result: a normal completion carries the completion value, a
// thrown completion carries the thrown value with Exception set. Eval never
// returns a Go error for script-level failures; syntax errors surface as
// thrown completions like any other exception.
func (ctx *Context) Eval(code string, opts ...EvalOption) Result {
	options := evalOptions{filename: "<eval>"}
	for _, opt := range opts {
		opt(&options)
	}

	codePtr := C.CString(code)
	defer C.free(unsafe.Pointer(codePtr))
	filenamePtr := C.CString(options.filename)
	defer C.free(unsafe.Pointer(filenamePtr))

	flags := C.int(C.JS_EVAL_TYPE_GLOBAL)
	if options.strict {
		flags |= C.JS_EVAL_FLAG_STRICT
	}

	ret := C.JS_Eval(ctx.ref, codePtr, C.size_t(len(code)), filenamePtr, flags)
	if C.JS_IsException(ret) == 1 {
		return ctx.exceptionResult()
	}
	return ctx.okResult(ret)
}

// Global returns a fresh descriptor for the global object. Each call yields
// an independently owned handle.
func (ctx *Context) Global() ValueDesc {
	return ctx.descOf(C.JS_GetGlobalObject(ctx.ref))
}

// Object creates a new empty object.
func (ctx *Context) Object() ValueDesc {
	return ctx.descOf(C.JS_NewObject(ctx.ref))
}

// Array creates a new empty array.
func (ctx *Context) Array() ValueDesc {
	return ctx.descOf(C.JS_NewArray(ctx.ref))
}

// okResult wraps a normal completion, taking ownership of ref.
func (ctx *Context) okResult(ref C.JSValue) Result {
	return Result{ctx: ctx, Value: ctx.descOf(ref)}
}

// exceptionResult drains the pending exception into a thrown-completion
// Result. The engine's exception slot is cleared as a side effect.
func (ctx *Context) exceptionResult() Result {
	return Result{ctx: ctx, Exception: true, Value: ctx.descOf(C.JS_GetException(ctx.ref))}
}
