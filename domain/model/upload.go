package model

// ChunkRange is one contiguous byte range of a media asset, inclusive on both
// ends, uploaded as a single HTTP request.
type ChunkRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r ChunkRange) Len() int64 { return r.End - r.Start + 1 }

// UploadSession describes one chunked transfer. It lives only for the duration
// of a publish attempt; a process restart loses the session and the attempt
// starts over.
type UploadSession struct {
	TotalSize    int64        `json:"total_size"`
	ChunkSize    int64        `json:"chunk_size"`
	ChunkCount   int          `json:"chunk_count"`
	ChunkRanges  []ChunkRange `json:"chunk_ranges"`
	UploadTarget string       `json:"upload_target"`
}
