// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines billing associations.
package model

import "github.com/vk/slurmcodec/internal/sentinel"

// Association flag bits.
const (
	AssocFlagDeleted   uint16 = 1 << 0
	AssocFlagNoUpdate  uint16 = 1 << 1
	AssocFlagExact     uint16 = 1 << 2
	AssocFlagUserCoord uint16 = 1 << 3
)

// Assoc is a billing association.
type Assoc struct {
	ID            uint32
	Cluster       string
	Account       string
	User          string
	Partition     string
	ParentAccount string
	Comment       string
	IsDefault     uint16
	DefaultQOS    uint32
	QOS           []string
	Flags         uint16
	// SharesRaw is NoVal when unset.
	SharesRaw uint32
	MaxJobs   sentinel.Value[uint32]
	// Lineage is maintained by the accounting daemon and never exchanged.
	Lineage string
}

// NewAssoc returns an association with its limits unset.
func NewAssoc() Assoc {
	return Assoc{SharesRaw: sentinel.NoVal}
}

// Short returns the identifying part of a.
func (a *Assoc) Short() AssocShort {
	return AssocShort{ID: a.ID, Cluster: a.Cluster, Account: a.Account, User: a.User, Partition: a.Partition}
}

// AssocShort identifies an association.
type AssocShort struct {
	ID        uint32
	Cluster   string
	Account   string
	User      string
	Partition string
}

// Matches reports whether the composite key of s names a. The id is ignored.
func (s AssocShort) Matches(a *Assoc) bool {
	return s.Cluster == a.Cluster && s.Account == a.Account && s.User == a.User && s.Partition == a.Partition
}
