// Package hexdump renders foreign memory for humans: offsets are absolute
// addresses and 8-byte cells that point into mapped memory are called out.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"livemem/process"
	"livemem/process/memory_map"
)

// Options controls a dump.
type Options struct {
	// BytesPerLine defaults to 16.
	BytesPerLine int
	// Color enables ANSI colouring.
	Color bool
	// MemoryMap enables pointer annotation for cells that land in it.
	MemoryMap []memory_map.MemoryMapItem
	// Highlight marks every occurrence of these bytes.
	Highlight []byte
}

// Dump returns the dump of data read at addr.
func Dump(data []byte, addr process.ProcessMemoryAddress, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, addr, options)
	return buffer.String()
}

// DumpToWriter writes the dump of data read at addr to writer.
func DumpToWriter(writer io.Writer, data []byte, addr process.ProcessMemoryAddress, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	highlighted := highlightMask(data, options.Highlight)
	for start := 0; start < len(data); start += options.BytesPerLine {
		end := min(start+options.BytesPerLine, len(data))
		formatLine(writer, data[start:end], highlighted[start:end], addr.Add(uint64(start)), options)
	}
}

// highlightMask marks every byte covered by an occurrence of pattern.
func highlightMask(data, pattern []byte) []bool {
	mask := make([]bool, len(data))
	if len(pattern) == 0 {
		return mask
	}
	for i := 0; i+len(pattern) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			for j := range pattern {
				mask[i+j] = true
			}
		}
	}
	return mask
}

func paint(options Options, fg coloransi.ColorCode, s string) string {
	if !options.Color {
		return s
	}
	return coloransi.Foreground(fg, s)
}

// formatLine writes one line:
//
//	0000000140000010  00 01 20 00 00 00 00 00 | 00 ...  |.. .....|  -> 0x200100
func formatLine(writer io.Writer, data []byte, highlighted []bool, addr process.ProcessMemoryAddress, options Options) {
	fmt.Fprint(writer, paint(options, coloransi.Cyan, fmt.Sprintf("%016x", uint64(addr))), "  ")

	half := options.BytesPerLine / 2
	var hex strings.Builder
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			hex.WriteByte(' ')
			if i == half && options.BytesPerLine >= 8 {
				hex.WriteString("| ")
			}
		}
		if i >= len(data) {
			hex.WriteString("  ")
			continue
		}

		cell := fmt.Sprintf("%02x", data[i])
		switch {
		case highlighted[i]:
			cell = paint(options, coloransi.Yellow, cell)
		case data[i] == 0:
			cell = paint(options, coloransi.BrightBlack, cell)
		}
		hex.WriteString(cell)
	}
	fmt.Fprint(writer, hex.String(), "  |")

	for i, b := range data {
		c := rune(b)
		switch {
		case highlighted[i]:
			fmt.Fprint(writer, paint(options, coloransi.Yellow, string(c)))
		case b == 0:
			fmt.Fprint(writer, paint(options, coloransi.BrightBlack, "."))
		case b > unicode.MaxASCII || !unicode.IsPrint(c):
			fmt.Fprint(writer, paint(options, coloransi.Red, "."))
		default:
			fmt.Fprint(writer, string(c))
		}
	}
	fmt.Fprint(writer, strings.Repeat(" ", options.BytesPerLine-len(data)), "|")

	if len(options.MemoryMap) > 0 {
		var ptrs []string
		for i := 0; i+process.PointerSize <= len(data); i += process.PointerSize {
			ptr := binary.LittleEndian.Uint64(data[i:])
			if ptr != 0 && memory_map.IsValidAddress(ptr, options.MemoryMap) {
				ptrs = append(ptrs, paint(options, coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
		if len(ptrs) > 0 {
			fmt.Fprint(writer, "  -> ", strings.Join(ptrs, " "))
		}
	}

	fmt.Fprintln(writer)
}
