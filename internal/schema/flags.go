package schema

import (
	"github.com/vk/slurmcodec/internal/flagbit"
	"github.com/vk/slurmcodec/internal/model"
	"github.com/vk/slurmcodec/internal/parser"
)

// Flag array type ids.
const (
	TypeQOSFlags       parser.TypeID = "QOS_FLAGS"
	TypePreemptMode    parser.TypeID = "QOS_PREEMPT_MODES"
	TypeAssocFlags     parser.TypeID = "ASSOC_FLAGS"
	TypeJobState       parser.TypeID = "JOB_STATE"
	TypeJobFlags       parser.TypeID = "JOB_FLAGS"
	TypeJobShared      parser.TypeID = "JOB_SHARED"
	TypePartitionState parser.TypeID = "PARTITION_STATE"
	TypePartitionFlags parser.TypeID = "PARTITION_FLAGS"
)

func bit[T parser.Unsigned](name string, v T) flagbit.Entry {
	return flagbit.BitFlag(name, uint64(v))
}

func equal[T parser.Unsigned](name string, v, mask T) flagbit.Entry {
	return flagbit.EqualFlag(name, uint64(v), uint64(mask))
}

func flagParsers() []*parser.Parser {
	return []*parser.Parser{
		parser.NewFlagArray[uint32](TypeQOSFlags, []flagbit.Entry{
			bit("PARTITION_MINIMUM_NODE", model.QOSFlagPartMinNode),
			bit("PARTITION_MAXIMUM_NODE", model.QOSFlagPartMaxNode),
			bit("PARTITION_TIME_LIMIT", model.QOSFlagPartTimeLimit),
			bit("ENFORCE_USAGE_THRESHOLD", model.QOSFlagEnforceUsageThres),
			bit("NO_RESERVE", model.QOSFlagNoReserve),
			bit("REQUIRED_RESERVATION", model.QOSFlagReqResv),
			bit("DENY_LIMIT", model.QOSFlagDenyLimit),
			bit("OVERRIDE_PARTITION_QOS", model.QOSFlagOverPartQOS),
			bit("NO_DECAY", model.QOSFlagNoDecay),
			bit("USAGE_FACTOR_SAFE", model.QOSFlagUsageFactorSafe),
			bit("RELATIVE", model.QOSFlagRelative),
			bit("NOTIFY", model.QOSFlagNotify).Hide(),
		}, parser.Describe("QOS flags")),

		parser.NewFlagArray[uint16](TypePreemptMode, []flagbit.Entry{
			equal("DISABLED", model.PreemptModeOff, model.PreemptModeModeMask),
			equal("SUSPEND", model.PreemptModeSuspend, model.PreemptModeModeMask),
			equal("REQUEUE", model.PreemptModeRequeue, model.PreemptModeModeMask),
			equal("CANCEL", model.PreemptModeCancel, model.PreemptModeModeMask),
			bit("GANG", model.PreemptModeGang),
			bit("WITHIN", model.PreemptModeWithin),
		}, parser.Describe("Preemption mode")),

		parser.NewFlagArray[uint16](TypeAssocFlags, []flagbit.Entry{
			bit("DELETED", model.AssocFlagDeleted),
			bit("NO_UPDATE", model.AssocFlagNoUpdate).Hide(),
			bit("EXACT", model.AssocFlagExact),
			bit("USER_COORD", model.AssocFlagUserCoord),
		}, parser.Describe("Association flags")),

		parser.NewFlagArray[uint32](TypeJobState, []flagbit.Entry{
			equal("PENDING", model.JobPending, model.JobStateBase),
			equal("RUNNING", model.JobRunning, model.JobStateBase),
			equal("SUSPENDED", model.JobSuspended, model.JobStateBase),
			equal("COMPLETED", model.JobComplete, model.JobStateBase),
			equal("CANCELLED", model.JobCancelled, model.JobStateBase),
			equal("FAILED", model.JobFailed, model.JobStateBase),
			equal("TIMEOUT", model.JobTimeout, model.JobStateBase),
			equal("NODE_FAIL", model.JobNodeFail, model.JobStateBase),
			equal("PREEMPTED", model.JobPreempted, model.JobStateBase),
			equal("BOOT_FAIL", model.JobBootFail, model.JobStateBase),
			equal("DEADLINE", model.JobDeadline, model.JobStateBase),
			equal("OUT_OF_MEMORY", model.JobOOM, model.JobStateBase),
			bit("LAUNCH_FAILED", model.JobLaunchFail),
			bit("REQUEUED", model.JobRequeued),
			bit("RESIZING", model.JobResizing),
			bit("CONFIGURING", model.JobConfiguring),
			bit("COMPLETING", model.JobCompleting),
			bit("STOPPED", model.JobStopped),
		}, parser.Describe("Job state")),

		parser.NewFlagArray[uint64](TypeJobFlags, []flagbit.Entry{
			bit("KILL_INVALID_DEPENDENCY", model.JobFlagKillInvalidDep),
			bit("NO_KILL_INVALID_DEPENDENCY", model.JobFlagNoKillInvalidDep),
			bit("HAS_STATE_DIRECTORY", model.JobFlagHasStateDir),
			bit("SPREAD_JOB", model.JobFlagSpreadJob),
			bit("USE_MIN_NODES", model.JobFlagUseMinNodes),
			bit("TEST_NOW_ONLY", model.JobFlagTestNowOnly),
			bit("SEND_JOB_ENVIRONMENT", model.JobFlagSendJobEnv),
			bit("NO_REQUEUE", model.JobFlagNoRequeue),
		}, parser.Describe("Job flags")),

		parser.NewFlagArray[uint16](TypeJobShared, []flagbit.Entry{
			equal("none", model.JobSharedNone, model.JobSharedMask).Hide(),
			equal("oversubscribe", model.JobSharedOK, model.JobSharedMask),
			equal("user", model.JobSharedUser, model.JobSharedMask),
			equal("mcs", model.JobSharedMCS, model.JobSharedMask),
			equal("topo", model.JobSharedTopo, model.JobSharedMask),
		}, parser.Describe("How the job may share nodes")),

		parser.NewFlagArray[uint16](TypePartitionState, []flagbit.Entry{
			equal("INACTIVE", model.PartitionInactive, model.PartitionStateMask),
			equal("DOWN", model.PartitionDown, model.PartitionStateMask),
			equal("DRAIN", model.PartitionDrain, model.PartitionStateMask),
			equal("UP", model.PartitionUp, model.PartitionStateMask),
		}, parser.Describe("Partition state")),

		parser.NewFlagArray[uint16](TypePartitionFlags, []flagbit.Entry{
			bit("DEFAULT", model.PartitionFlagDefault),
			bit("HIDDEN", model.PartitionFlagHidden),
			bit("NO_ROOT", model.PartitionFlagNoRoot),
			bit("ROOT_ONLY", model.PartitionFlagRootOnly),
			bit("REQUIRED_RESERVATION", model.PartitionFlagReqResv),
			bit("EXCLUSIVE_USER", model.PartitionFlagExclusive),
		}, parser.Describe("Partition flags")),
	}
}
