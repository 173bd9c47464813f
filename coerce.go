package minijs

/*
#include "bridge.h"
*/
import "C"
import "math"

// Coercions follow the language's abstract operations. The descriptor is
// borrowed, never consumed; scalar kinds short-circuit without touching the
// engine, heap kinds go through the engine so valueOf/toString hooks run
// and may throw.

// CoerceBoolean applies ToBoolean. It cannot throw.
func (ctx *Context) CoerceBoolean(d *ValueDesc) bool {
	switch d.Tag {
	case TagNull, TagUndefined:
		return false
	case TagBoolean:
		return d.Bool
	case TagNumber:
		return d.Number != 0 && !math.IsNaN(d.Number)
	case TagDate:
		return true
	}
	return C.JS_ToBool(ctx.ref, d.Handle.ref) == 1
}

// CoerceNumber applies ToNumber. A normal completion carries the number; a
// hook that throws comes back as a thrown completion.
func (ctx *Context) CoerceNumber(d *ValueDesc) Result {
	switch d.Tag {
	case TagNumber, TagDate:
		return Result{ctx: ctx, Value: Number(d.Number)}
	case TagNull:
		return Result{ctx: ctx, Value: Number(0)}
	case TagUndefined:
		return Result{ctx: ctx, Value: Number(math.NaN())}
	case TagBoolean:
		if d.Bool {
			return Result{ctx: ctx, Value: Number(1)}
		}
		return Result{ctx: ctx, Value: Number(0)}
	}
	var f C.double
	if C.JS_ToFloat64(ctx.ref, &f, d.Handle.ref) < 0 {
		return ctx.exceptionResult()
	}
	return Result{ctx: ctx, Value: Number(float64(f))}
}

// CoerceString applies ToString. A normal completion carries a fresh string
// descriptor; the input keeps its own handle.
func (ctx *Context) CoerceString(d *ValueDesc) Result {
	if d.Tag == TagString {
		return Result{ctx: ctx, Value: ValueDesc{Tag: TagString, Handle: d.Handle.Clone()}}
	}
	ref := ctx.materialize(d)
	defer C.JS_FreeValue(ctx.ref, ref)
	var size C.size_t
	cstr := C.JS_ToCStringLen(ctx.ref, &size, ref)
	if cstr == nil {
		return ctx.exceptionResult()
	}
	defer C.JS_FreeCString(ctx.ref, cstr)
	return ctx.okResult(C.JS_NewStringLen(ctx.ref, cstr, size))
}

// materialize produces an owned engine value for a borrowed descriptor.
// Heap kinds duplicate the handle; scalars are rebuilt from the payload.
func (ctx *Context) materialize(d *ValueDesc) C.JSValue {
	if d.HasHandle() {
		return C.JS_DupValue(ctx.ref, d.Handle.ref)
	}
	tmp := *d
	return ctx.value(&tmp)
}
