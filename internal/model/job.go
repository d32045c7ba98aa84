// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines jobs as submitted and as reported.
package model

import (
	"math"

	"github.com/vk/slurmcodec/internal/sentinel"
)

// Base job states. Exactly one is set in the JobStateBase bits.
const (
	JobPending     uint32 = 0
	JobRunning     uint32 = 1
	JobSuspended   uint32 = 2
	JobComplete    uint32 = 3
	JobCancelled   uint32 = 4
	JobFailed      uint32 = 5
	JobTimeout     uint32 = 6
	JobNodeFail    uint32 = 7
	JobPreempted   uint32 = 8
	JobBootFail    uint32 = 9
	JobDeadline    uint32 = 10
	JobOOM         uint32 = 11
	JobStateBase   uint32 = 0x000000ff
	JobLaunchFail  uint32 = 0x00000100
	JobRequeued    uint32 = 0x00000400
	JobResizing    uint32 = 0x00002000
	JobConfiguring uint32 = 0x00004000
	JobCompleting  uint32 = 0x00008000
	JobStopped     uint32 = 0x00010000
)

// Job submission flag bits.
const (
	JobFlagKillInvalidDep   uint64 = 1 << 0
	JobFlagNoKillInvalidDep uint64 = 1 << 1
	JobFlagHasStateDir      uint64 = 1 << 2
	JobFlagSpreadJob        uint64 = 1 << 4
	JobFlagUseMinNodes      uint64 = 1 << 5
	JobFlagTestNowOnly      uint64 = 1 << 8
	JobFlagSendJobEnv       uint64 = 1 << 9
	JobFlagNoRequeue        uint64 = 1 << 12
)

// Oversubscription modes of a job. They are exclusive.
const (
	JobSharedNone uint16 = 0
	JobSharedOK   uint16 = 1
	JobSharedUser uint16 = 2
	JobSharedMCS  uint16 = 3
	JobSharedTopo uint16 = 4
	JobSharedMask uint16 = 0x000f
)

// JobDesc is a job submission.
type JobDesc struct {
	Name                    string
	Account                 string
	Partition               string
	QOS                     string
	CurrentWorkingDirectory string
	Script                  string
	Environment             []string
	// Priority is NoVal when the controller picks it and 0 when held.
	Priority    uint32
	TimeLimit   uint32
	TimeMinimum uint32
	MinNodes    uint32
	MaxNodes    uint32
	Flags       uint64
	Shared      uint16
	Deadline    int64
	TRESPerJob  string
	CPUBinding  string
	Association *AssocShort
	// SubmitUID is set by the controller from the authenticated caller.
	SubmitUID uint32
}

// NewJobDesc returns a submission whose priority and time limits are left to
// the controller.
func NewJobDesc() JobDesc {
	return JobDesc{
		Priority:    sentinel.NoVal,
		TimeLimit:   sentinel.NoVal,
		TimeMinimum: sentinel.NoVal,
	}
}

// JobInfo is a job as reported by the controller.
type JobInfo struct {
	JobID      uint32
	Name       string
	UserName   string
	Account    string
	Partition  string
	QOS        string
	State      uint32
	Priority   sentinel.Value[uint32]
	TimeLimit  uint32
	SubmitTime int64
	StartTime  int64
	EndTime    int64
	Nice       int32
	AssocID    uint32
	Assoc      *AssocShort
	TRESAlloc  string
	Billing    float64
	Features   []string
	Steps      []*StepInfo
}

// NewJobInfo returns a job report with no time limit and no billing set.
func NewJobInfo() JobInfo {
	return JobInfo{
		TimeLimit: sentinel.NoVal,
		Billing:   math.NaN(),
	}
}

// StepInfo is one step of a job.
type StepInfo struct {
	ID    string
	Name  string
	State uint32
}
