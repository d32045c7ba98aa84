// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines trackable resources and the packed TRES string form the
// controller uses to carry resource counts.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/slurmcodec/internal/sentinel"
)

// Well known TRES ids.
const (
	TRESCPU     uint32 = 1
	TRESMem     uint32 = 2
	TRESEnergy  uint32 = 3
	TRESNode    uint32 = 4
	TRESBilling uint32 = 5
)

// TRES is a trackable resource.
type TRES struct {
	ID   uint32
	Type string
	// Name qualifies Type, e.g. "gpu" for type "gres". Empty for plain types.
	Name string
	// Count is NoVal64 when unspecified.
	Count uint64
}

// NewTRES returns a TRES without a count.
func NewTRES() TRES {
	return TRES{Count: sentinel.NoVal64}
}

// Ident returns "type" or "type/name".
func (t TRES) Ident() string {
	if t.Name == "" {
		return t.Type
	}
	return t.Type + "/" + t.Name
}

// SplitTRESIdent splits "gres/gpu" into its type and name.
func SplitTRESIdent(ident string) (typ, name string) {
	typ, name, _ = strings.Cut(strings.TrimSpace(ident), "/")
	return typ, name
}

// TRESCount is one entry of a packed TRES string.
type TRESCount struct {
	ID    uint32
	Count uint64
}

// ParseTRESString reads the packed "1=4,2=100" form.
func ParseTRESString(s string) ([]TRESCount, error) {
	var out []TRESCount
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("TRES entry %q is not id=count", part)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(k), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("TRES entry %q: invalid id: %w", part, err)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TRES entry %q: invalid count: %w", part, err)
		}
		out = append(out, TRESCount{ID: uint32(id), Count: n})
	}
	return out, nil
}

// FormatTRESString writes the packed form read by ParseTRESString.
func FormatTRESString(counts []TRESCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%d=%d", c.ID, c.Count)
	}
	return strings.Join(parts, ",")
}
