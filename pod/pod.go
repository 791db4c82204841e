// Package pod converts between Go values and their raw in-memory layout in
// the target process. T must be "POD": it and all of its fields/element
// types contain no pointers. Layout is the host's native layout, which for
// the supported targets is little-endian with C-compatible field packing.
package pod

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"livemem/process"
)

// ErrNotPOD is returned for types containing Go-managed references.
var ErrNotPOD = errors.New("type contains pointers; not POD-safe")

// Reader is the read half of a process handle.
type Reader interface {
	ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error)
}

// Writer is the write half of a process handle.
type Writer interface {
	WriteMemory(addr process.ProcessMemoryAddress, data []byte) error
}

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// Check returns ErrNotPOD if T cannot be copied byte for byte, or an error
// if T has no size.
func Check[T any]() error {
	var t T
	rt := reflect.TypeOf(t)
	if rt == nil {
		return fmt.Errorf("%w: interface type", ErrNotPOD)
	}
	if typeHasPointers(rt) {
		return fmt.Errorf("%w: %s", ErrNotPOD, rt)
	}
	if rt.Size() == 0 {
		return fmt.Errorf("size of %s is zero", rt)
	}
	return nil
}

// Decode copies the first sizeof(T) bytes of data into a new T.
func Decode[T any](data []byte) (T, error) {
	var tmp T
	if err := Check[T](); err != nil {
		return tmp, err
	}

	size := int(unsafe.Sizeof(tmp))
	if len(data) < size {
		return tmp, fmt.Errorf("decode: buffer too small: %d < %d", len(data), size)
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size)
	copy(dst, data[:size])
	// any nonzero target byte is true; Go only defines 0 and 1
	for _, off := range boolOffsets(reflect.TypeOf(tmp), 0, nil) {
		if dst[off] != 0 {
			dst[off] = 1
		}
	}
	return tmp, nil
}

// boolOffsets appends the byte offset of every bool inside rt.
func boolOffsets(rt reflect.Type, base uintptr, out []uintptr) []uintptr {
	switch rt.Kind() {
	case reflect.Bool:
		out = append(out, base)
	case reflect.Array:
		elem := rt.Elem()
		for i := 0; i < rt.Len(); i++ {
			out = boolOffsets(elem, base+uintptr(i)*elem.Size(), out)
		}
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			out = boolOffsets(f.Type, base+f.Offset, out)
		}
	}
	return out
}

// Equal reports whether a and b have the same memory image. Unlike ==, a
// NaN equals itself and +0 differs from -0. Types that carry pointers
// compare with ==.
func Equal[T comparable](a, b T) bool {
	if typeHasPointers(reflect.TypeFor[T]()) {
		return a == b
	}
	return bytes.Equal(Encode(a), Encode(b))
}

// Encode returns the raw bytes of v.
func Encode[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

// ReadT reads a T at addr.
func ReadT[T any](r Reader, addr process.ProcessMemoryAddress) (T, error) {
	size := SizeOf[T]()
	if size == 0 {
		return *new(T), errors.New("ReadT: size of T is zero")
	}

	data, err := r.ReadMemory(addr, size)
	if err != nil {
		return *new(T), err
	}

	return Decode[T](data)
}

// WriteT writes v at addr.
func WriteT[T any](w Writer, addr process.ProcessMemoryAddress, v T) error {
	if err := Check[T](); err != nil {
		return err
	}
	return w.WriteMemory(addr, Encode(v))
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// bool, ints, uints, floats, complex, etc.
		return false
	}
}
