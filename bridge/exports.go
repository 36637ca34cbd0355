package bridge

import (
	"fmt"
	"sort"
	"sync"
)

// EntryPoint is a natively implemented function reachable from the foreign
// runtime under its qualified name.
type EntryPoint func(args ...Value) (Value, error)

var exports = struct {
	sync.RWMutex
	m map[string]EntryPoint
}{m: make(map[string]EntryPoint)}

// Export registers fn under name, normally "<qualified class>.<function>".
// Generated code calls it from init; a duplicate name is a programming
// error and panics.
func Export(name string, fn EntryPoint) {
	if fn == nil {
		panic(fmt.Sprintf("bridge: nil entry point for %q", name))
	}

	exports.Lock()
	defer exports.Unlock()
	if _, dup := exports.m[name]; dup {
		panic(fmt.Sprintf("bridge: entry point %q exported twice", name))
	}
	exports.m[name] = fn
}

// Lookup returns the entry point exported under name.
func Lookup(name string) (EntryPoint, bool) {
	exports.RLock()
	defer exports.RUnlock()
	fn, ok := exports.m[name]
	return fn, ok
}

// Exports lists every exported name in sorted order.
func Exports() []string {
	exports.RLock()
	names := make([]string, 0, len(exports.m))
	for name := range exports.m {
		names = append(names, name)
	}
	exports.RUnlock()

	sort.Strings(names)
	return names
}

// Call invokes an exported entry point on behalf of the foreign runtime.
// A panic inside native code is returned as a callee error.
func Call(name string, args ...Value) (result Value, err error) {
	fn, ok := Lookup(name)
	if !ok {
		return Nil, invocationErrorf("no native entry point %q", name)
	}

	defer func() {
		if r := recover(); r != nil {
			result = Nil
			err = &Error{Kind: KindCallee, Message: fmt.Sprintf("%s: panic: %v", name, r)}
		}
	}()

	result, err = fn(args...)
	return result, Unify(err)
}

// CheckArity fails with an invocation error unless exactly want arguments
// were passed to the entry point name.
func CheckArity(name string, args []Value, want int) error {
	if len(args) != want {
		return invocationErrorf("%s: expected %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func unexport(name string) {
	exports.Lock()
	delete(exports.m, name)
	exports.Unlock()
}
