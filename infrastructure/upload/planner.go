package upload

import "media-publisher/domain/model"

// PlanChunks splits an asset of totalSize bytes into bounded ranges of
// chunkSize bytes each. Deterministic: the same inputs always produce the
// same ranges, which lets an aborted attempt recompute identical boundaries.
//
// Assets no larger than one chunk transfer as a single range. Otherwise the
// ranges are contiguous, non-overlapping and cover [0, totalSize-1] exactly,
// with the final range holding the remainder.
func PlanChunks(totalSize, chunkSize int64) (model.UploadSession, error) {
	if totalSize <= 0 || chunkSize <= 0 {
		return model.UploadSession{}, model.ErrInvalidSource
	}

	if totalSize <= chunkSize {
		return model.UploadSession{
			TotalSize:   totalSize,
			ChunkSize:   totalSize,
			ChunkCount:  1,
			ChunkRanges: []model.ChunkRange{{Start: 0, End: totalSize - 1}},
		}, nil
	}

	count := int((totalSize + chunkSize - 1) / chunkSize)
	ranges := make([]model.ChunkRange, 0, count)
	var start int64
	for start < totalSize {
		end := start + chunkSize - 1
		if end > totalSize-1 {
			end = totalSize - 1
		}
		ranges = append(ranges, model.ChunkRange{Start: start, End: end})
		start = end + 1
	}

	return model.UploadSession{
		TotalSize:   totalSize,
		ChunkSize:   chunkSize,
		ChunkCount:  count,
		ChunkRanges: ranges,
	}, nil
}
