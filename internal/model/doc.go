// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the fixed in-memory records the codec converts: quality
// of service policies, trackable resources, associations, job descriptions,
// job and partition state.
//
// # Core Concepts
//
//   - TRES: a trackable resource such as cpu, mem or gres/gpu, addressed by a
//     numeric id or by type and name.
//
//   - QOS: a scheduling policy. Jobs and associations refer to it by id or
//     by name.
//
//   - Assoc: the billing association of a (cluster, account, user, partition)
//     tuple.
//
//   - JobDesc and JobInfo: a job as submitted and a job as the controller
//     reports it.
//
// Numeric members keep the controller's reserved sentinel values (see package
// sentinel). Members that carry a state are packed flag words; their names live
// in package schema. Catalog records and wire records are the same types.
package model
