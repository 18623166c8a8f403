package types

import "fmt"

// SessionState is the lifecycle position of one UploadSession.
type SessionState string

const (
	SessionPending    SessionState = "pending"
	SessionInProgress SessionState = "in_progress"
	SessionFinalizing SessionState = "finalizing"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

var sessionTransitions = map[SessionState][]SessionState{
	SessionPending:    {SessionInProgress, SessionFailed},
	SessionInProgress: {SessionFinalizing, SessionFailed},
	SessionFinalizing: {SessionCompleted, SessionFailed},
}

// UploadSession is one in-flight file transfer. It is owned by a single upload
// and discarded once Completed or Failed has been reported.
type UploadSession struct {
	TransferId         string       `json:"transferId"`
	FileName           string       `json:"fileName"`
	FileSizeBytes      int64        `json:"fileSizeBytes"`
	MimeType           string       `json:"mimeType"`
	ChunkSizeBytes     int64        `json:"chunkSizeBytes"`
	TotalChunks        int          `json:"totalChunks"`
	ChunksAcknowledged int          `json:"chunksAcknowledged"`
	State              SessionState `json:"state"`
}

// TransitionTo moves the session to next, rejecting moves the state machine does not allow.
func (s *UploadSession) TransitionTo(next SessionState) error {
	for _, allowed := range sessionTransitions[s.State] {
		if allowed == next {
			if next == SessionCompleted && s.ChunksAcknowledged != s.TotalChunks {
				return fmt.Errorf("cannot complete session %s: %d of %d chunks acknowledged",
					s.TransferId, s.ChunksAcknowledged, s.TotalChunks)
			}
			s.State = next
			return nil
		}
	}
	return fmt.Errorf("invalid session transition %s -> %s", s.State, next)
}

// Acknowledge records one more chunk confirmed by the remote endpoint.
func (s *UploadSession) Acknowledge() error {
	if s.State != SessionInProgress {
		return fmt.Errorf("cannot acknowledge chunk in state %s", s.State)
	}
	if s.ChunksAcknowledged >= s.TotalChunks {
		return fmt.Errorf("all %d chunks already acknowledged", s.TotalChunks)
	}
	s.ChunksAcknowledged++
	return nil
}

// ChunkRequest describes one slice transmission. Start is inclusive, End exclusive.
type ChunkRequest struct {
	TransferId  string
	FileName    string
	ChunkIndex  int
	TotalChunks int
	Start       int64
	End         int64
}

// Len returns the number of bytes in the chunk.
func (r ChunkRequest) Len() int64 {
	return r.End - r.Start
}
