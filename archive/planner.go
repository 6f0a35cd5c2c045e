package archive

// Planner implements the chunk planner (§5): it decides how a large input
// run is split into independent Phase-1 (optional reorder-map analysis)
// plus Phase-2 (block compression) sub-runs, so that the estimated memory
// held by records-in-flight never exceeds a configured budget.
//
// Per-record memory overhead is modeled per §5's shared-resource policy:
// ~50 bytes for Phase-2 block compression, plus ~24 bytes more when a
// Phase-1 pass is also building a reorder map over the same records.
type Planner struct {
	// MemoryLimitBytes caps the estimated memory held by records in
	// flight across one partition. Zero or negative means no limit: the
	// whole run becomes a single partition.
	MemoryLimitBytes int64
	// BlockRecordCount is the target number of records per block; used
	// only to report how many blocks a partition is expected to produce.
	// Zero uses DefaultBlockRecordCount.
	BlockRecordCount uint64
}

// DefaultBlockRecordCount is used when Planner.BlockRecordCount is unset.
const DefaultBlockRecordCount = 100_000

const (
	phase2BytesPerRecord = 50
	phase1BytesPerRecord = 24
)

// Partition is one independent Phase-1/Phase-2 sub-run: a contiguous
// half-open slice [RecordStart, RecordStart+RecordCount) of the overall
// input, with the block_id and archive_id counters it should continue
// from so that numbering stays monotonic across partitions.
type Partition struct {
	Index          int
	RecordStart    uint64
	RecordCount    uint64
	BlockIDStart   uint32
	ArchiveIDStart uint64
	BlockCount     uint32
}

func (p Planner) blockRecordCount() uint64 {
	if p.BlockRecordCount == 0 {
		return DefaultBlockRecordCount
	}
	return p.BlockRecordCount
}

// maxRecordsPerPartition returns how many records one partition may hold
// without exceeding MemoryLimitBytes. withReorder adds the Phase-1
// overhead for runs that also build a reorder map.
func (p Planner) maxRecordsPerPartition(withReorder bool) uint64 {
	if p.MemoryLimitBytes <= 0 {
		return 0 // 0 means "unbounded" to callers of Plan
	}

	overhead := uint64(phase2BytesPerRecord)
	if withReorder {
		overhead += phase1BytesPerRecord
	}

	max := uint64(p.MemoryLimitBytes) / overhead
	if max == 0 {
		max = 1 // always make forward progress, even under a tiny budget
	}

	return max
}

// Plan partitions totalRecords records into one or more Partitions. When
// MemoryLimitBytes is unset, Plan returns a single partition covering the
// whole run. block_id and archive_id numbering (§4.2, §4.4) continue
// monotonically from one partition to the next.
func (p Planner) Plan(totalRecords uint64, withReorder bool) []Partition {
	if totalRecords == 0 {
		return nil
	}

	maxPer := p.maxRecordsPerPartition(withReorder)
	if maxPer == 0 || maxPer >= totalRecords {
		return []Partition{{
			Index:          0,
			RecordStart:    0,
			RecordCount:    totalRecords,
			BlockIDStart:   0,
			ArchiveIDStart: 1,
			BlockCount:     blockCount(totalRecords, p.blockRecordCount()),
		}}
	}

	var partitions []Partition
	var recordStart, archiveIDStart uint64 = 0, 1
	var blockIDStart uint32
	idx := 0

	for recordStart < totalRecords {
		remaining := totalRecords - recordStart
		count := maxPer
		if count > remaining {
			count = remaining
		}

		numBlocks := blockCount(count, p.blockRecordCount())

		partitions = append(partitions, Partition{
			Index:          idx,
			RecordStart:    recordStart,
			RecordCount:    count,
			BlockIDStart:   blockIDStart,
			ArchiveIDStart: archiveIDStart,
			BlockCount:     numBlocks,
		})

		recordStart += count
		archiveIDStart += count
		blockIDStart += numBlocks
		idx++
	}

	return partitions
}

func blockCount(records, perBlock uint64) uint32 {
	if perBlock == 0 {
		perBlock = DefaultBlockRecordCount
	}
	return uint32((records + perBlock - 1) / perBlock)
}
