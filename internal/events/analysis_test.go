package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTrigger struct {
	mu    sync.Mutex
	users []uuid.UUID
	fired chan struct{}
}

func newRecordingTrigger() *recordingTrigger {
	return &recordingTrigger{fired: make(chan struct{}, 16)}
}

func (r *recordingTrigger) Trigger(userID uuid.UUID) {
	r.mu.Lock()
	r.users = append(r.users, userID)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recordingTrigger) triggered() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.users...)
}

func eventMsg(t *testing.T, ev AnalysisEvent) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return &nats.Msg{Subject: DefaultAnalysisSubject, Data: data}
}

// MockTrigger mocks the Trigger interface.
type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) Trigger(userID uuid.UUID) {
	m.Called(userID)
}

func TestHandle_TriggersOnCompletedAnalysis(t *testing.T) {
	user := uuid.New()
	trigger := new(MockTrigger)
	trigger.On("Trigger", user).Return().Twice()
	s := NewAnalysisSubscriber(nil, "", trigger, zap.NewNop())

	s.handle(eventMsg(t, AnalysisEvent{UserID: user, DreamID: uuid.New(), Status: domain.AnalysisDone}))
	// An empty status counts as done.
	s.handle(eventMsg(t, AnalysisEvent{UserID: user}))

	trigger.AssertExpectations(t)
}

func TestHandle_DropsOtherEvents(t *testing.T) {
	tests := []struct {
		name string
		msg  func(t *testing.T) *nats.Msg
	}{
		{
			name: "failed analysis",
			msg: func(t *testing.T) *nats.Msg {
				return eventMsg(t, AnalysisEvent{UserID: uuid.New(), Status: domain.AnalysisFailed})
			},
		},
		{
			name: "missing user",
			msg: func(t *testing.T) *nats.Msg {
				return eventMsg(t, AnalysisEvent{DreamID: uuid.New(), Status: domain.AnalysisDone})
			},
		},
		{
			name: "malformed body",
			msg: func(t *testing.T) *nats.Msg {
				return &nats.Msg{Subject: DefaultAnalysisSubject, Data: []byte("not json")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := new(MockTrigger)
			s := NewAnalysisSubscriber(nil, "", trigger, zap.NewNop())

			s.handle(tt.msg(t))

			trigger.AssertNotCalled(t, "Trigger", mock.Anything)
		})
	}
}

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestAnalysisSubscriber_EndToEnd(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := Connect(server.ClientURL(), zap.NewNop())
	require.NoError(t, err)
	defer nc.Close()

	trigger := newRecordingTrigger()
	sub := NewAnalysisSubscriber(nc, "", trigger, zap.NewNop())
	require.NoError(t, sub.Start())
	defer sub.Stop()

	user := uuid.New()
	data, err := json.Marshal(AnalysisEvent{UserID: user, DreamID: uuid.New(), Status: domain.AnalysisDone})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(DefaultAnalysisSubject, data))
	require.NoError(t, nc.Flush())

	select {
	case <-trigger.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not trigger detection")
	}
	assert.Equal(t, []uuid.UUID{user}, trigger.triggered())
}

// gatedTrigger blocks inside Trigger until release is closed.
type gatedTrigger struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTrigger) Trigger(userID uuid.UUID) {
	g.entered <- struct{}{}
	<-g.release
}

func TestAnalysisSubscriber_StopWaitsForRunningHandler(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := Connect(server.ClientURL(), zap.NewNop())
	require.NoError(t, err)
	defer nc.Close()

	trigger := &gatedTrigger{entered: make(chan struct{}, 1), release: make(chan struct{})}
	sub := NewAnalysisSubscriber(nc, "", trigger, zap.NewNop())
	require.NoError(t, sub.Start())

	data, err := json.Marshal(AnalysisEvent{UserID: uuid.New(), DreamID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(DefaultAnalysisSubject, data))
	require.NoError(t, nc.Flush())

	select {
	case <-trigger.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	stopped := make(chan struct{})
	go func() {
		sub.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the handler was still running")
	case <-time.After(200 * time.Millisecond):
	}

	close(trigger.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the handler finished")
	}
}
