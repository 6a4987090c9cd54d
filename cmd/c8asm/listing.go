package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"gochip8/pkg/cpu"
)

// writeListing prints one line per source statement: address, bytes,
// disassembly for two-byte statements, and the source text.
func writeListing(w io.Writer, origin uint16, code []byte, sourceMap map[uint16]int, source string) error {
	lines := strings.Split(source, "\n")
	addrs := make([]uint16, 0, len(sourceMap))
	for addr := range sourceMap {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	for i, addr := range addrs {
		start := int(addr - origin)
		end := len(code)
		if i+1 < len(addrs) {
			end = int(addrs[i+1] - origin)
		}
		chunk := code[start:end]

		var hex strings.Builder
		for _, b := range chunk {
			fmt.Fprintf(&hex, "%02X", b)
		}
		dis := ""
		if len(chunk) == 2 {
			dis = cpu.Decode(uint16(chunk[0])<<8 | uint16(chunk[1])).String()
		}
		src := strings.TrimSpace(lines[sourceMap[addr]-1])
		if _, err := fmt.Fprintf(w, "%03X  %-8s  %-18s ; %4d  %s\n", addr, hex.String(), dis, sourceMap[addr], src); err != nil {
			return err
		}
	}
	return nil
}

func writeLabels(w io.Writer, labels map[string]uint16) error {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if labels[a] != labels[b] {
			return int(labels[a]) - int(labels[b])
		}
		return strings.Compare(a, b)
	})
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%03X  %s\n", labels[name], name); err != nil {
			return err
		}
	}
	return nil
}
