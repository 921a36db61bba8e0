package main

import (
	"fmt"
	"strconv"
	"strings"

	"uistyle/cascade"
	"uistyle/css"
	"uistyle/dom"
	"uistyle/match"
)

// parseViewport parses "WIDTHxHEIGHT".
func parseViewport(s string) (cascade.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return cascade.Size{}, fmt.Errorf("bad viewport %q, expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil || width <= 0 {
		return cascade.Size{}, fmt.Errorf("bad viewport width %q", w)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil || height <= 0 {
		return cascade.Size{}, fmt.Errorf("bad viewport height %q", h)
	}
	return cascade.Size{Width: width, Height: height}, nil
}

// parseStates builds state snapshot from "ID=STATE[,STATE]" arguments.
// Repeated element ids accumulate states.
func parseStates(doc *dom.Document, args []string) (match.Snapshot, error) {
	snapshot := make(match.Snapshot)
	for _, arg := range args {
		elem, list, ok := strings.Cut(arg, "=")
		if !ok || elem == "" || list == "" {
			return nil, fmt.Errorf("bad state %q, expected ID=STATE[,STATE]", arg)
		}
		id := doc.ByID(strings.TrimPrefix(elem, "#"))
		if id == dom.NoNode {
			return nil, fmt.Errorf("no element with id %q", elem)
		}
		for name := range strings.SplitSeq(list, ",") {
			s, ok := css.ParseState(strings.TrimSpace(name))
			if !ok {
				return nil, fmt.Errorf("unknown pseudo-state %q", name)
			}
			snapshot[id] |= s
		}
	}
	return snapshot, nil
}

// parseVariable splits "--NAME=VALUE".
func parseVariable(arg string) (string, string, error) {
	name, value, ok := strings.Cut(arg, "=")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || !strings.HasPrefix(name, "--") || value == "" {
		return "", "", fmt.Errorf("bad variable %q, expected --NAME=VALUE", arg)
	}
	return name, value, nil
}
