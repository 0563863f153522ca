package events

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"safepool/core/types"
)

type stubEvent struct {
	payload *types.Event
}

func (s stubEvent) EventType() string {
	if s.payload == nil {
		return ""
	}
	return s.payload.Type
}

func (s stubEvent) Event() *types.Event { return s.payload }

func TestRecorderCapturesInOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(stubEvent{payload: &types.Event{Type: "pool.deposit"}})
	rec.Emit(stubEvent{payload: nil})
	rec.Emit(stubEvent{payload: &types.Event{Type: "pool.withdraw"}})

	require.Equal(t, []string{"pool.deposit", "pool.withdraw"}, rec.Types())
}

func TestLogEmitterWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	emitter := &LogEmitter{Log: slog.New(slog.NewTextHandler(&buf, nil))}
	emitter.Emit(stubEvent{payload: &types.Event{
		Type:       "escrow.collected",
		Attributes: map[string]string{"id": "0xabc"},
	}})
	emitter.Emit(stubEvent{payload: nil})

	out := buf.String()
	require.Contains(t, out, "escrow.collected")
	require.Contains(t, out, "id=0xabc")
}
