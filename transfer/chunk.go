package transfer

import (
	"github.com/moyoez/corpus-uploader/types"
)

// DefaultChunkSize is the fixed slice size used when none is configured (5 MiB).
const DefaultChunkSize int64 = 5 * 1024 * 1024

// TotalChunks returns ceil(size / chunkSize), or 0 for an empty source.
func TotalChunks(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// ChunkRange returns the byte range [start, end) of chunk index.
func ChunkRange(index int, size, chunkSize int64) (start, end int64) {
	start = int64(index) * chunkSize
	end = min(size, start+chunkSize)
	return start, end
}

// PlanChunks lists every chunk request of sess in transmission order.
func PlanChunks(sess *types.UploadSession) []types.ChunkRequest {
	reqs := make([]types.ChunkRequest, 0, sess.TotalChunks)
	for i := 0; i < sess.TotalChunks; i++ {
		reqs = append(reqs, chunkRequest(sess, i))
	}
	return reqs
}

func chunkRequest(sess *types.UploadSession, index int) types.ChunkRequest {
	start, end := ChunkRange(index, sess.FileSizeBytes, sess.ChunkSizeBytes)
	return types.ChunkRequest{
		TransferId:  sess.TransferId,
		FileName:    sess.FileName,
		ChunkIndex:  index,
		TotalChunks: sess.TotalChunks,
		Start:       start,
		End:         end,
	}
}

// ProgressPercent is round(acked/total*100), held at 99 until finalize succeeds.
func ProgressPercent(acked, total int) int {
	if total <= 0 || acked <= 0 {
		return 0
	}
	pct := (200*acked + total) / (2 * total)
	return min(pct, 99)
}
