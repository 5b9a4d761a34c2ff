package handler

import (
	"reflect"
	"runtime"
	"strings"
	"unsafe"
)

// Owner identifies the code unit that declared a callback. Bulk teardown removes
// every subscription whose Owner matches a module being unloaded.
type Owner string

// NoOwner is the zero Owner, used when a callback cannot be resolved to a package.
const NoOwner Owner = ""

// OwnerOf returns the import path of the package that declares fn's implementation.
// Closures and method values resolve to the package of their enclosing function,
// not the package that registered them.
func OwnerOf(fn any) Owner {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return NoOwner
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return NoOwner
	}
	return ownerFromSymbol(f.Name())
}

// ownerFromSymbol extracts the package path from a linker symbol such as
// "github.com/acme/plugin.(*Mod).Init.func1" or "gopkg.in/yaml%2ev3.Unmarshal".
func ownerFromSymbol(name string) Owner {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return Owner(name)
	}
	pkg := name[:slash+1+dot]
	return Owner(strings.ReplaceAll(pkg, "%2e", "."))
}

// Identity returns the reference identity of a function value: the pointer to its
// closure object. Two func values compare equal only if one is a copy of the other,
// which mirrors delegate reference equality. A func literal evaluated twice, or a
// method value taken twice, yields two identities.
func Identity(fn any) unsafe.Pointer {
	if fn == nil {
		return nil
	}
	type eface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return (*eface)(unsafe.Pointer(&fn)).data
}
