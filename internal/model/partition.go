// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines partition state.
package model

import "github.com/vk/slurmcodec/internal/sentinel"

// Partition states. They are exclusive.
const (
	PartitionInactive  uint16 = 0x00
	PartitionDown      uint16 = 0x01
	PartitionUp        uint16 = 0x03
	PartitionDrain     uint16 = 0x02
	PartitionStateMask uint16 = 0x03
)

// Partition flag bits.
const (
	PartitionFlagDefault   uint16 = 1 << 0
	PartitionFlagHidden    uint16 = 1 << 1
	PartitionFlagNoRoot    uint16 = 1 << 2
	PartitionFlagRootOnly  uint16 = 1 << 3
	PartitionFlagReqResv   uint16 = 1 << 4
	PartitionFlagExclusive uint16 = 1 << 7
)

// PartitionInfo is a partition as reported by the controller.
type PartitionInfo struct {
	Name           string
	Nodes          string
	TotalNodes     uint32
	TotalCPUs      uint32
	State          uint16
	Flags          uint16
	PriorityTier   uint16
	MaxTime        uint32
	DefaultTime    uint32
	MaxNodes       uint32
	OverTimeLimit  uint16
	MemPerCPU      uint64
	SuspendTime    int64
	QOS            string
	AllowQOS       string
	TRES           string
	BillingWeights string
}

// NewPartitionInfo returns a partition with every limit unset.
func NewPartitionInfo() PartitionInfo {
	return PartitionInfo{
		PriorityTier:  sentinel.NoVal16,
		MaxTime:       sentinel.NoVal,
		DefaultTime:   sentinel.NoVal,
		MaxNodes:      sentinel.NoVal,
		OverTimeLimit: sentinel.NoVal16,
		MemPerCPU:     sentinel.NoVal64,
		SuspendTime:   sentinel.NoValI64,
	}
}
