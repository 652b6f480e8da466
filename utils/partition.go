package utils

import "fmt"

// PartitionMap splits a run of MaxIndex cells into NumParts contiguous pieces
// with a maximum imbalance of one cell between pieces
type PartitionMap struct {
	MaxIndex   int
	NumParts   int
	Partitions [][2]int // [start, end) of each piece
}

func NewPartitionMap(NumParts, maxIndex int) (pm *PartitionMap) {
	if NumParts < 1 {
		panic(fmt.Errorf("partition count must be positive, have %d", NumParts))
	}
	pm = &PartitionMap{
		MaxIndex:   maxIndex,
		NumParts:   NumParts,
		Partitions: make([][2]int, NumParts),
	}
	for n := 0; n < NumParts; n++ {
		pm.Partitions[n] = pm.split(n)
	}
	return
}

func (pm *PartitionMap) split(part int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / pm.NumParts
		remainder        = pm.MaxIndex % pm.NumParts
		startAdd, endAdd int
	)
	if remainder != 0 { // spread the remainder over the first pieces
		if part+1 > remainder {
			startAdd = remainder
		} else {
			startAdd = part
			endAdd = 1
		}
	}
	bucket[0] = part*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// Range returns the [start, end) cell range of a piece
func (pm *PartitionMap) Range(part int) (start, end int) {
	start, end = pm.Partitions[part][0], pm.Partitions[part][1]
	return
}

func (pm *PartitionMap) Size(part int) int {
	return pm.Partitions[part][1] - pm.Partitions[part][0]
}

// Owner finds the piece holding cell index, part is -1 when out of range
func (pm *PartitionMap) Owner(index int) (part, start, end int) {
	_, part, start, end = pm.ownerWithTryCount(index)
	return
}

func (pm *PartitionMap) ownerWithTryCount(index int) (tryCount, part, start, end int) {
	if index < 0 || index >= pm.MaxIndex {
		return 0, -1, 0, 0
	}
	// Initial guess from the mean piece size
	part = int(float64(pm.NumParts*index) / float64(pm.MaxIndex))
	for !(pm.Partitions[part][0] <= index && pm.Partitions[part][1] > index) {
		if pm.Partitions[part][0] > index {
			part--
		} else {
			part++
		}
		tryCount++
	}
	start, end = pm.Partitions[part][0], pm.Partitions[part][1]
	return
}
