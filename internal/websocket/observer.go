package websocket

import (
	"github.com/yegors/flightrecon/internal/pipeline"
)

// RunObserver forwards pipeline progress to every connected client
type RunObserver struct {
	server *Server
}

// NewRunObserver creates a pipeline observer broadcasting through s
func NewRunObserver(s *Server) *RunObserver {
	return &RunObserver{server: s}
}

func (o *RunObserver) RunStarted(runID string) {
	o.server.Broadcast(&Message{
		Type: MessageTypeRunStarted,
		Data: map[string]any{"run_id": runID},
	})
}

func (o *RunObserver) StageCompleted(runID string, stage pipeline.Stage, stats any) {
	o.server.Broadcast(&Message{
		Type: MessageTypeStageCompleted,
		Data: map[string]any{"run_id": runID, "stage": string(stage), "stats": stats},
	})
}

func (o *RunObserver) RunCompleted(summary pipeline.Summary) {
	o.server.Broadcast(&Message{
		Type: MessageTypeRunCompleted,
		Data: map[string]any{"run_id": summary.RunID, "summary": summary},
	})
}

func (o *RunObserver) RunFailed(runID string, err error) {
	o.server.Broadcast(&Message{
		Type: MessageTypeRunFailed,
		Data: map[string]any{"run_id": runID, "error": err.Error()},
	})
}
