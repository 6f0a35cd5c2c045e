package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanner_NoLimit_SinglePartition(t *testing.T) {
	p := Planner{}
	parts := p.Plan(1_000_000, false)
	require.Len(t, parts, 1)
	require.Equal(t, uint64(0), parts[0].RecordStart)
	require.Equal(t, uint64(1_000_000), parts[0].RecordCount)
	require.Equal(t, uint64(1), parts[0].ArchiveIDStart)
	require.Equal(t, uint32(0), parts[0].BlockIDStart)
	require.Equal(t, uint32(10), parts[0].BlockCount)
}

func TestPlanner_ZeroRecords(t *testing.T) {
	p := Planner{}
	require.Nil(t, p.Plan(0, false))
}

func TestPlanner_MemoryLimit_SplitsIntoPartitions(t *testing.T) {
	// 50 bytes/record (Phase-2 only), budget for exactly 1000 records.
	p := Planner{MemoryLimitBytes: 50_000, BlockRecordCount: 100}
	parts := p.Plan(2500, false)

	require.Len(t, parts, 3)

	require.Equal(t, uint64(0), parts[0].RecordStart)
	require.Equal(t, uint64(1000), parts[0].RecordCount)
	require.Equal(t, uint64(1), parts[0].ArchiveIDStart)
	require.Equal(t, uint32(0), parts[0].BlockIDStart)
	require.Equal(t, uint32(10), parts[0].BlockCount)

	require.Equal(t, uint64(1000), parts[1].RecordStart)
	require.Equal(t, uint64(1000), parts[1].RecordCount)
	require.Equal(t, uint64(1001), parts[1].ArchiveIDStart)
	require.Equal(t, uint32(10), parts[1].BlockIDStart)
	require.Equal(t, uint32(10), parts[1].BlockCount)

	require.Equal(t, uint64(2000), parts[2].RecordStart)
	require.Equal(t, uint64(500), parts[2].RecordCount)
	require.Equal(t, uint64(2001), parts[2].ArchiveIDStart)
	require.Equal(t, uint32(20), parts[2].BlockIDStart)
	require.Equal(t, uint32(5), parts[2].BlockCount)
}

func TestPlanner_WithReorder_HigherOverhead_SmallerPartitions(t *testing.T) {
	noReorder := Planner{MemoryLimitBytes: 74_000}.maxRecordsPerPartition(false)
	withReorder := Planner{MemoryLimitBytes: 74_000}.maxRecordsPerPartition(true)

	require.Equal(t, uint64(1480), noReorder)
	require.Equal(t, uint64(1000), withReorder)
}

func TestPlanner_TinyBudget_StillMakesProgress(t *testing.T) {
	p := Planner{MemoryLimitBytes: 1, BlockRecordCount: 10}
	parts := p.Plan(3, false)
	require.Len(t, parts, 3)
	for _, part := range parts {
		require.Equal(t, uint64(1), part.RecordCount)
	}
}
