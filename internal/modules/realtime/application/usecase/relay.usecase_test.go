package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

func TestRelay_SendToTopicReachesOnlySubscribers(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	directory := newFakeDirectory("a", "b")
	require.NoError(t, registry.Join(domain.MachineCommandsTopic(5), "a"))
	relay := NewRelayUseCase(domain.HubCommand, registry, directory)

	cmd := domain.Command{ID: 9, MachineID: 5, CommandType: "RESTART", Status: domain.CommandStatusPending}
	require.NoError(t, relay.SendToTopic(context.Background(), domain.MachineCommandsTopic(5), domain.EventNewCommand, cmd))

	msgs := directory.messages(t, "a")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.HubCommand, msgs[0].Hub)
	assert.Equal(t, "Machine_5_Commands", msgs[0].Topic)
	assert.Equal(t, domain.EventNewCommand, msgs[0].Event)
	require.Len(t, msgs[0].Arguments, 1)

	var got domain.Command
	require.NoError(t, json.Unmarshal(msgs[0].Arguments[0], &got))
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, "RESTART", got.CommandType)

	assert.Empty(t, directory.messages(t, "b"))
}

func TestRelay_SendToTopicWithoutSubscribersIsNoop(t *testing.T) {
	t.Parallel()

	directory := newFakeDirectory("a")
	relay := NewRelayUseCase(domain.HubLog, newFakeRegistry(), directory)

	assert.NoError(t, relay.SendToTopic(context.Background(), domain.LogLevelTopic("DEBUG"), domain.EventNewLogEntry, "x"))
	assert.Empty(t, directory.messages(t, "a"))
}

func TestRelay_RejectsBlankTopic(t *testing.T) {
	t.Parallel()

	relay := NewRelayUseCase(domain.HubMachine, newFakeRegistry(), newFakeDirectory())
	ctx := context.Background()

	assert.ErrorIs(t, relay.SendToTopic(ctx, " ", domain.EventMachineStatusUpdated), domain.ErrInvalidTopic)
	assert.ErrorIs(t, relay.SendToTopics(ctx, []string{"Machine_1", ""}, domain.EventMachineStatusUpdated), domain.ErrInvalidTopic)
	assert.ErrorIs(t, relay.SendToMachineTopic(ctx, domain.RelationKind("alarms"), 1, "X"), domain.ErrUnknownRelation)
}

func TestRelay_BroadcastIgnoresSubscriptions(t *testing.T) {
	t.Parallel()

	directory := newFakeDirectory("a", "b", "c")
	relay := NewRelayUseCase(domain.HubMachine, newFakeRegistry(), directory)

	require.NoError(t, relay.Broadcast(context.Background(), domain.EventMachineStatusUpdated, map[string]any{"machineId": 7, "status": "Online"}))

	for _, id := range []string{"a", "b", "c"} {
		msgs := directory.messages(t, id)
		require.Len(t, msgs, 1, id)
		assert.Equal(t, domain.TopicAll, msgs[0].Topic)
	}
}

func TestRelay_FailingRecipientDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	directory := newFakeDirectory("a", "b", "c")
	directory.failing["b"] = true
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, registry.Join(domain.TopicMachineUpdates, id))
	}
	relay := NewRelayUseCase(domain.HubMachine, registry, directory)

	require.NoError(t, relay.SendToTopic(context.Background(), domain.TopicMachineUpdates, domain.EventMachineStatusUpdate))

	assert.Len(t, directory.messages(t, "a"), 1)
	assert.Empty(t, directory.messages(t, "b"))
	assert.Len(t, directory.messages(t, "c"), 1)
}

func TestRelay_PreservesOrderPerTopic(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	directory := newFakeDirectory("a")
	require.NoError(t, registry.Join(domain.MachineTopic(3), "a"))
	relay := NewRelayUseCase(domain.HubMachine, registry, directory)

	ctx := context.Background()
	require.NoError(t, relay.SendToTopic(ctx, domain.MachineTopic(3), "E1"))
	require.NoError(t, relay.SendToTopic(ctx, domain.MachineTopic(3), "E2"))
	require.NoError(t, relay.SendToTopic(ctx, domain.MachineTopic(3), "E3"))

	assert.Equal(t, []string{"E1", "E2", "E3"}, directory.events(t, "a"))
}

func TestRelay_SendToTopicsDeduplicatesConnections(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	directory := newFakeDirectory("both", "machine", "level")
	logs := domain.MachineLogsTopic(5)
	level := domain.LogLevelTopic("ERROR")
	require.NoError(t, registry.Join(logs, "both"))
	require.NoError(t, registry.Join(level, "both"))
	require.NoError(t, registry.Join(logs, "machine"))
	require.NoError(t, registry.Join(level, "level"))
	relay := NewRelayUseCase(domain.HubLog, registry, directory)

	require.NoError(t, relay.SendToTopics(context.Background(), []string{logs, level}, domain.EventNewLogEntry, "entry"))

	both := directory.messages(t, "both")
	require.Len(t, both, 1)
	assert.Equal(t, logs, both[0].Topic)
	assert.Len(t, directory.messages(t, "machine"), 1)
	levelMsgs := directory.messages(t, "level")
	require.Len(t, levelMsgs, 1)
	assert.Equal(t, level, levelMsgs[0].Topic)
}

func TestRelay_MarshalFailureIsReturned(t *testing.T) {
	t.Parallel()

	directory := newFakeDirectory("a")
	relay := NewRelayUseCase(domain.HubMachine, newFakeRegistry(), directory)

	err := relay.Broadcast(context.Background(), "Bad", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, directory.messages(t, "a"))
}
