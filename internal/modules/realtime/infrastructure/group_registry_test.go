package infrastructure

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

func TestGroupRegistry_JoinIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubCommand)
	topic := domain.MachineCommandsTopic(5)

	require.NoError(t, registry.Join(topic, "conn-1"))
	first := registry.Subscribers(topic)
	require.NoError(t, registry.Join(topic, "conn-1"))

	assert.Equal(t, first, registry.Subscribers(topic))
	assert.Equal(t, []string{"conn-1"}, registry.Subscribers(topic))
}

func TestGroupRegistry_LeaveIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubLog)
	topic := domain.LogLevelTopic("ERROR")
	require.NoError(t, registry.Join(topic, "conn-1"))

	registry.Leave(topic, "conn-2")
	assert.Equal(t, []string{"conn-1"}, registry.Subscribers(topic))

	registry.Leave("LogLevel_NEVER", "conn-1")
	assert.Equal(t, []string{"conn-1"}, registry.Subscribers(topic))

	registry.Leave(topic, "conn-1")
	registry.Leave(topic, "conn-1")
	assert.Empty(t, registry.Subscribers(topic))
}

func TestGroupRegistry_SubscribersOfUnknownTopicIsEmpty(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubMachine)
	subs := registry.Subscribers("Machine_404")
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestGroupRegistry_RejectsBlankTopic(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubMachine)
	assert.ErrorIs(t, registry.Join("", "conn-1"), domain.ErrInvalidTopic)
	assert.ErrorIs(t, registry.Join("   ", "conn-1"), domain.ErrInvalidTopic)
	assert.ErrorIs(t, registry.Join("Machine_1", " "), domain.ErrUnknownConnection)
	assert.Empty(t, registry.Topics())
}

func TestGroupRegistry_EmptyTopicsAreDropped(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubMachine)
	require.NoError(t, registry.Join("Machine_1", "conn-1"))
	require.NoError(t, registry.Join("Machine_2", "conn-1"))
	assert.Equal(t, []string{"Machine_1", "Machine_2"}, registry.Topics())

	registry.Leave("Machine_1", "conn-1")
	assert.Equal(t, []string{"Machine_2"}, registry.Topics())
}

func TestGroupRegistry_RemoveConnectionPurgesEveryTopic(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubLog)
	require.NoError(t, registry.Join(domain.MachineLogsTopic(5), "conn-1"))
	require.NoError(t, registry.Join(domain.LogLevelTopic("ERROR"), "conn-1"))
	require.NoError(t, registry.Join(domain.LogLevelTopic("ERROR"), "conn-2"))

	removed := registry.RemoveConnection("conn-1")

	assert.Equal(t, 2, removed)
	assert.Empty(t, registry.Subscribers(domain.MachineLogsTopic(5)))
	assert.Equal(t, []string{"conn-2"}, registry.Subscribers(domain.LogLevelTopic("ERROR")))
	assert.Empty(t, registry.TopicsOf("conn-1"))
	assert.Equal(t, 0, registry.RemoveConnection("conn-1"))
}

func TestGroupRegistry_ConcurrentMembershipChanges(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubCommand)
	var wg sync.WaitGroup
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			conn := fmt.Sprintf("conn-%02d", worker)
			for machine := domain.MachineID(0); machine < 50; machine++ {
				topic := domain.MachineCommandsTopic(machine)
				_ = registry.Join(topic, conn)
				_ = registry.Subscribers(topic)
				if machine%2 == 1 {
					registry.Leave(topic, conn)
				}
			}
		}(worker)
	}
	wg.Wait()

	for machine := domain.MachineID(0); machine < 50; machine++ {
		subs := registry.Subscribers(domain.MachineCommandsTopic(machine))
		if machine%2 == 1 {
			assert.Empty(t, subs, "machine %d", machine)
			continue
		}
		assert.Len(t, subs, 16, "machine %d", machine)
	}
}
