package main

import (
	"errors"
	"fmt"
	"strings"

	"livemem/offset"
	"livemem/offset_file"
	"livemem/process"
)

// valueRef is a resolved command line reference to a typed value.
type valueRef struct {
	Name   string
	Offset offset.Offset
	Base   *offset.BaseOffset
	Type   string
}

// lookupValue turns a catalog name or a literal hex list such as
// "0x1D2C3E0,0x50" into a value reference. baseName and typeName override
// whatever the catalog says when set.
func lookupValue(catalog *offset_file.Catalog, ref, baseName, typeName string) (valueRef, error) {
	v := valueRef{Name: ref}

	if entry, err := catalog.Entry(ref); err == nil {
		v.Offset = entry.Offset
		v.Base = catalog.BaseOf(entry)
		v.Type = entry.Type
	} else {
		steps, perr := offset_file.ParseHexList(ref)
		if perr != nil {
			return v, fmt.Errorf("%q is neither a known offset nor a hex list: %w", ref, perr)
		}
		if len(steps) == 0 {
			return v, errors.New("empty offset")
		}
		v.Offset = offset.New(steps...)
	}

	if baseName != "" {
		base, err := lookupBase(catalog, baseName)
		if err != nil {
			return v, err
		}
		v.Base = &base
	}
	if typeName != "" {
		v.Type = typeName
	}
	return v, nil
}

// lookupBase accepts a catalog base name, "@<hex address>" for an absolute
// base, or a hex list relative to the module.
func lookupBase(catalog *offset_file.Catalog, ref string) (offset.BaseOffset, error) {
	if base, err := catalog.Base(ref); err == nil {
		return base, nil
	}

	if rest, ok := strings.CutPrefix(ref, "@"); ok {
		steps, err := offset_file.ParseHexList(rest)
		if err != nil || len(steps) == 0 {
			return offset.BaseOffset{}, fmt.Errorf("bad absolute base %q", ref)
		}
		return offset.AbsoluteBase(process.ProcessMemoryAddress(steps[0]), steps[1:]...), nil
	}

	steps, err := offset_file.ParseHexList(ref)
	if err != nil {
		return offset.BaseOffset{}, fmt.Errorf("%q is neither a known base nor a hex list: %w", ref, err)
	}
	return offset.NewBase(steps...), nil
}
