// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the quality of service record.
package model

import (
	"math"

	"github.com/vk/slurmcodec/internal/sentinel"
)

// QOS flag bits.
const (
	QOSFlagPartMinNode       uint32 = 1 << 0
	QOSFlagPartMaxNode       uint32 = 1 << 1
	QOSFlagPartTimeLimit     uint32 = 1 << 2
	QOSFlagEnforceUsageThres uint32 = 1 << 3
	QOSFlagNoReserve         uint32 = 1 << 4
	QOSFlagReqResv           uint32 = 1 << 5
	QOSFlagDenyLimit         uint32 = 1 << 6
	QOSFlagOverPartQOS       uint32 = 1 << 7
	QOSFlagNoDecay           uint32 = 1 << 8
	QOSFlagUsageFactorSafe   uint32 = 1 << 9
	QOSFlagRelative          uint32 = 1 << 10
	// QOSFlagNotify is set internally when a QOS changes and never reported.
	QOSFlagNotify uint32 = 1 << 31
)

// Preemption modes. The low bits are exclusive modes, GANG combines with them.
const (
	PreemptModeOff      uint16 = 0x0000
	PreemptModeSuspend  uint16 = 0x0001
	PreemptModeRequeue  uint16 = 0x0002
	PreemptModeCancel   uint16 = 0x0008
	PreemptModeModeMask uint16 = 0x000f
	PreemptModeWithin   uint16 = 0x4000
	PreemptModeGang     uint16 = 0x8000
)

// QOS is a quality of service policy.
type QOS struct {
	ID          uint32
	Name        string
	Description string
	Flags       uint32
	Priority    sentinel.Value[uint32]
	// UsageFactor is NaN when unspecified.
	UsageFactor    float64
	UsageThreshold float64
	Limits         QOSLimits
	Preempt        QOSPreempt
}

// NewQOS returns a QOS with every limit unset.
func NewQOS() QOS {
	return QOS{
		UsageFactor:    math.NaN(),
		UsageThreshold: math.NaN(),
		Limits: QOSLimits{
			GraceTime:      sentinel.NoVal,
			MaxWallPerJob:  sentinel.NoVal,
			MaxJobsPerUser: sentinel.NoVal,
			MinPriority:    sentinel.NoVal,
			Factor:         sentinel.NoValI32,
		},
		Preempt: QOSPreempt{ExemptTime: sentinel.NoVal},
	}
}

// QOSLimits are the per-job and per-user limits of a QOS. Raw members carry
// the controller's NoVal/Infinite sentinels.
type QOSLimits struct {
	GraceTime      uint32
	MaxWallPerJob  uint32
	MaxJobsPerUser uint32
	MaxTRESPerJob  string
	MinPriority    uint32
	// Factor is the legacy limit factor, signed with its own sentinels.
	Factor int32
}

// QOSPreempt lists the QOS names a QOS may preempt and how.
type QOSPreempt struct {
	List       []string
	Mode       uint16
	ExemptTime uint32
}
