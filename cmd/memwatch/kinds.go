package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"livemem/marshal"
	"livemem/offset"
	"livemem/pod"
)

// kind is a value type the CLI can read, write, watch and search for.
type kind interface {
	read(s *marshal.Session, off offset.Offset, base *offset.BaseOffset) (string, error)
	write(s *marshal.Session, off offset.Offset, base *offset.BaseOffset, text string) error
	watch(s *marshal.Session, off offset.Offset, base *offset.BaseOffset, emit func(string)) (stop func() error, err error)
	encode(text string) ([]byte, error)
}

type typedKind[T comparable] struct {
	parse  func(string) (T, error)
	format func(T) string
}

func (k typedKind[T]) read(s *marshal.Session, off offset.Offset, base *offset.BaseOffset) (string, error) {
	var out string
	err := marshal.With(s, off, base, func(m *marshal.Marshaler[T]) error {
		v, err := m.Read()
		if err != nil {
			return err
		}
		out = k.format(v)
		return nil
	})
	return out, err
}

func (k typedKind[T]) write(s *marshal.Session, off offset.Offset, base *offset.BaseOffset, text string) error {
	v, err := k.parse(text)
	if err != nil {
		return err
	}
	return marshal.With(s, off, base, func(m *marshal.Marshaler[T]) error {
		return m.Write(v)
	})
}

func (k typedKind[T]) watch(s *marshal.Session, off offset.Offset, base *offset.BaseOffset, emit func(string)) (func() error, error) {
	m, err := marshal.Acquire[T](s, off, base)
	if err != nil {
		return nil, err
	}
	m.OnChanged(func(v T) {
		emit(k.format(v))
	})
	return m.Close, nil
}

func (k typedKind[T]) encode(text string) ([]byte, error) {
	v, err := k.parse(text)
	if err != nil {
		return nil, err
	}
	return pod.Encode(v), nil
}

func parseUnsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

func parseSigned[T ~int8 | ~int16 | ~int32 | ~int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	}
}

func parseFloat[T ~float32 | ~float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	}
}

// parseFloats splits "1,2,3" or "(1, 2, 3)" into exactly n float32s.
func parseFloats(s string, n int) ([]float32, error) {
	s = strings.Trim(strings.TrimSpace(s), "()")
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated components, got %d", n, len(parts))
	}

	out := make([]float32, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

func parseVector3(s string) (pod.Vector3, error) {
	f, err := parseFloats(s, 3)
	if err != nil {
		return pod.Vector3{}, err
	}
	return pod.Vector3{X: f[0], Y: f[1], Z: f[2]}, nil
}

func parseQuaternion(s string) (pod.Quaternion, error) {
	f, err := parseFloats(s, 4)
	if err != nil {
		return pod.Quaternion{}, err
	}
	return pod.Quaternion{X: f[0], Y: f[1], Z: f[2], W: f[3]}, nil
}

func parseColor(s string) (pod.Color, error) {
	f, err := parseFloats(s, 3)
	if err != nil {
		return pod.Color{}, err
	}
	return pod.Color{R: f[0], G: f[1], B: f[2]}, nil
}

func formatAny[T any](v T) string { return fmt.Sprint(v) }

func formatHex[T ~uint8 | ~uint16 | ~uint32 | ~uint64](v T) string {
	return fmt.Sprintf("%d (0x%x)", v, v)
}

var kinds = map[string]kind{
	"u8":         typedKind[uint8]{parseUnsigned[uint8](8), formatHex[uint8]},
	"u16":        typedKind[uint16]{parseUnsigned[uint16](16), formatHex[uint16]},
	"u32":        typedKind[uint32]{parseUnsigned[uint32](32), formatHex[uint32]},
	"u64":        typedKind[uint64]{parseUnsigned[uint64](64), formatHex[uint64]},
	"i8":         typedKind[int8]{parseSigned[int8](8), formatAny[int8]},
	"i16":        typedKind[int16]{parseSigned[int16](16), formatAny[int16]},
	"i32":        typedKind[int32]{parseSigned[int32](32), formatAny[int32]},
	"i64":        typedKind[int64]{parseSigned[int64](64), formatAny[int64]},
	"f32":        typedKind[float32]{parseFloat[float32](32), formatAny[float32]},
	"f64":        typedKind[float64]{parseFloat[float64](64), formatAny[float64]},
	"bool":       typedKind[bool]{strconv.ParseBool, strconv.FormatBool},
	"vector3":    typedKind[pod.Vector3]{parseVector3, formatAny[pod.Vector3]},
	"quaternion": typedKind[pod.Quaternion]{parseQuaternion, formatAny[pod.Quaternion]},
	"color":      typedKind[pod.Color]{parseColor, formatAny[pod.Color]},
}

func lookupKind(name string) (kind, error) {
	if name == "" {
		return nil, errors.New("value has no type, pass --type")
	}
	k, ok := kinds[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown type %q (known: %s)", name, strings.Join(kindNames(), ", "))
	}
	return k, nil
}

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
