package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

// CalculateStatistics overwrites the provided memutils.Statistics with a summary of the heap
func (a *Allocator) CalculateStatistics(stats *memutils.Statistics) {
	stats.Clear()
	a.blocks.AddStatistics(stats)
}

// CalculateDetailedStatistics overwrites the provided memutils.DetailedStatistics with a summary of
// the heap, including payload size ranges for used and free blocks
func (a *Allocator) CalculateDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()
	a.blocks.AddDetailedStatistics(stats)
}

// PrintDetailedMap writes a json object describing the heap region and every block in it, in
// creation order
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	objState := writer.Object()
	defer objState.End()

	objState.Name("Top").Int(a.Top())
	if !a.closed {
		objState.Name("Limit").Int(a.brk.Limit())
	}
	a.blocks.BlockJsonData(objState)

	arrayState := objState.Name("Chain").Array()
	defer arrayState.End()

	_ = a.blocks.VisitAllBlocks(func(index metadata.BlockIndex, block metadata.Block) error {
		obj := arrayState.Object()
		defer obj.End()

		blockType := "FREE"
		if block.Used {
			blockType = "USED"
		}

		obj.Name("Offset").Int(block.Offset)
		obj.Name("Pointer").String(Pointer(block.PayloadOffset()).String())
		obj.Name("Type").String(blockType)
		obj.Name("Size").Int(block.Size)
		return nil
	})
}

// BuildStatsString returns a json document summarizing the heap. When detailed is true, the
// document also contains the detailed map written by PrintDetailedMap.
func (a *Allocator) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()

	var stats memutils.DetailedStatistics
	a.CalculateDetailedStatistics(&stats)

	obj := writer.Object()

	total := obj.Name("Total").Object()
	total.Name("BlockCount").Int(stats.BlockCount)
	total.Name("BlockBytes").Int(stats.BlockBytes)
	total.Name("AllocationCount").Int(stats.AllocationCount)
	total.Name("AllocationBytes").Int(stats.AllocationBytes)
	total.Name("FreeBlockCount").Int(stats.FreeBlockCount)
	total.Name("FreeBytes").Int(stats.FreeBytes)
	if stats.AllocationCount > 0 {
		total.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		total.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
	if stats.FreeBlockCount > 0 {
		total.Name("FreeBlockSizeMin").Int(stats.FreeBlockSizeMin)
		total.Name("FreeBlockSizeMax").Int(stats.FreeBlockSizeMax)
	}
	total.End()

	if detailed {
		a.PrintDetailedMap(obj.Name("DetailedMap"))
	}

	obj.End()

	return string(writer.Bytes())
}
