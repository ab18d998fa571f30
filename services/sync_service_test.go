package services

import (
	"event-bridge/domain"
	"event-bridge/mocks"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSyncService_RequestSync_Uses_Active_Transport(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	selector := mocks.NewMockTransportSelector(ctrl)
	transport := mocks.NewMockTransport(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", selector, nil)

	selector.EXPECT().ActiveTransport().Return(transport, true)
	var sent domain.Envelope
	transport.EXPECT().Send(gomock.Any()).DoAndReturn(func(env domain.Envelope) bool {
		sent = env
		return true
	})

	req.True(service.RequestSync())

	// Then the request is out-of-band
	req.Equal(domain.KindSyncRequest, sent.Kind)
	req.Zero(sent.Sequence)
	req.Equal("me", sent.SenderID)
}

func TestSyncService_RequestSync_Without_Transport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	selector := mocks.NewMockTransportSelector(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", selector, nil)

	selector.EXPECT().ActiveTransport().Return(nil, false)

	require.False(t, service.RequestSync())
}

func TestSyncService_HandleSyncRequest_Replies_With_Snapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	source := mocks.NewMockSnapshotSource(ctrl)
	reply := mocks.NewMockTransport(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", mocks.NewMockTransportSelector(ctrl), source)

	current := &domain.ParticipantsSnapshot{SessionKey: "s1", Count: 2, Participants: []domain.SnapshotParticipant{
		{ID: "alice"}, {ID: "bob"},
	}}
	source.EXPECT().Snapshot().Return(current)
	var sent domain.Envelope
	reply.EXPECT().Send(gomock.Any()).DoAndReturn(func(env domain.Envelope) bool {
		sent = env
		return true
	})

	service.HandleSyncRequest(reply)

	req.Equal(domain.KindSyncSnapshot, sent.Kind)
	decoded, err := domain.DecodeSnapshot(sent)
	req.NoError(err)
	req.Equal(current, decoded)
}

func TestSyncService_HandleSyncRequest_Without_State_Sends_Null(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	source := mocks.NewMockSnapshotSource(ctrl)
	reply := mocks.NewMockTransport(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", mocks.NewMockTransportSelector(ctrl), source)

	source.EXPECT().Snapshot().Return(nil)
	var sent domain.Envelope
	reply.EXPECT().Send(gomock.Any()).DoAndReturn(func(env domain.Envelope) bool {
		sent = env
		return true
	})

	service.HandleSyncRequest(reply)

	req.JSONEq("null", string(sent.Payload))
}

func TestSyncService_HandleSnapshot_Keeps_Most_Recent(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", nil, nil)
	var applied []int

	service.OnSnapshot = func(s *domain.ParticipantsSnapshot) { applied = append(applied, s.Count) }

	snapshotAt := func(count int, at time.Time) domain.Envelope {
		env, err := domain.NewSyncSnapshot("agent", at, &domain.ParticipantsSnapshot{Count: count})
		req.NoError(err)
		return env
	}
	t0 := time.UnixMilli(1_000)

	// Given a snapshot arrived
	req.True(service.HandleSnapshot("realtime", snapshotAt(2, t0.Add(time.Second))))

	// When an older one loses the race
	req.False(service.HandleSnapshot("socket", snapshotAt(1, t0)))

	// Then the newer one stays authoritative, equal or newer replace it
	req.Equal(2, service.Latest().Count)
	req.True(service.HandleSnapshot("socket", snapshotAt(3, t0.Add(time.Second))))
	req.Equal(3, service.Latest().Count)
	req.Equal([]int{2, 3}, applied)

	service.Reset()
	req.Nil(service.Latest())
	req.True(service.HandleSnapshot("socket", snapshotAt(1, t0)))
}

func TestSyncService_HandleSnapshot_Unreadable(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := NewSyncService(log, clock.NewMock(), "me", nil, nil)

	ok := service.HandleSnapshot("socket", domain.Envelope{
		Version: domain.Version, Kind: domain.KindSyncSnapshot, Payload: []byte(`"nope"`),
	})

	require.False(t, ok)
	require.Nil(t, service.Latest())
}

func TestSync_Aggregator_Answers_Late_Joiner(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	aggregator, _, _ := newAggregator(t)
	reply := mocks.NewMockTransport(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	authority := NewSyncService(log, clock.NewMock(), "tab-a", nil, aggregator)
	lateJoiner := NewSyncService(log, clock.NewMock(), "tab-b", nil, nil)

	aggregator.RecordJoin("s1", "alice", "Alice", false, false)
	aggregator.RecordJoin("s1", "me", "Me", true, false)

	reply.EXPECT().Send(gomock.Any()).DoAndReturn(func(env domain.Envelope) bool {
		return lateJoiner.HandleSnapshot("realtime", env)
	})

	authority.HandleSyncRequest(reply)

	req.Equal(2, lateJoiner.Latest().Count)
}
