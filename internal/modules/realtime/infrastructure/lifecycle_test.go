package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

func TestLifecycleTracker_ConnectDoesNotJoinTopics(t *testing.T) {
	t.Parallel()

	registry := NewGroupRegistry(domain.HubMachine)
	tracker := NewLifecycleTracker(domain.HubMachine, registry)

	tracker.OnConnect("conn-1")

	assert.EqualValues(t, 1, tracker.Connected())
	assert.Empty(t, registry.TopicsOf("conn-1"))
	assert.Empty(t, registry.Topics())
}

func TestLifecycleTracker_DisconnectPurgesMemberships(t *testing.T) {
	t.Parallel()

	for name, cause := range map[string]error{"clean": nil, "error": errors.New("read: connection reset")} {
		cause := cause
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			registry := NewGroupRegistry(domain.HubCommand)
			tracker := NewLifecycleTracker(domain.HubCommand, registry)
			tracker.OnConnect("conn-1")
			tracker.OnConnect("conn-2")
			require.NoError(t, registry.Join(domain.MachineCommandsTopic(5), "conn-1"))
			require.NoError(t, registry.Join(domain.MachineCommandsTopic(5), "conn-2"))

			tracker.OnDisconnect("conn-1", cause)

			assert.EqualValues(t, 1, tracker.Connected())
			assert.Equal(t, []string{"conn-2"}, registry.Subscribers(domain.MachineCommandsTopic(5)))
		})
	}
}

func TestLifecycleTracker_NilPurger(t *testing.T) {
	t.Parallel()

	tracker := NewLifecycleTracker(domain.HubNotification, nil)
	tracker.OnConnect("conn-1")
	tracker.OnDisconnect("conn-1", nil)
	assert.EqualValues(t, 0, tracker.Connected())
}
