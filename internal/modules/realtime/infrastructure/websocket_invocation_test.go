package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type fakeCaller struct {
	id      string
	allowed bool
	sent    []*domain.Message
}

func newFakeCaller() *fakeCaller { return &fakeCaller{id: "conn-1", allowed: true} }

func (c *fakeCaller) ID() string     { return c.id }
func (c *fakeCaller) UserID() string { return "" }
func (c *fakeCaller) Allow() bool    { return c.allowed }

func (c *fakeCaller) SendMessage(msg *domain.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeCaller) events() []string {
	out := make([]string, 0, len(c.sent))
	for _, msg := range c.sent {
		out = append(out, msg.Event)
	}
	return out
}

func TestInvocationProcessor_DispatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	processor := NewInvocationProcessor(domain.HubLog)
	var got domain.MachineID
	processor.Register("JoinMachineLogGroup", func(_ context.Context, _ Caller, args Args) error {
		id, err := args.MachineID(0)
		got = id
		return err
	})
	caller := newFakeCaller()

	processor.Process(context.Background(), caller, Invocation{ID: "1", Method: "joinmachineloggroup", Args: Args{json.RawMessage(`5`)}})

	assert.Equal(t, domain.MachineID(5), got)
	assert.Equal(t, []string{domain.EventInvocationCompleted}, caller.events())
	assert.Equal(t, []any{"1"}, caller.sent[0].Arguments)
}

func TestInvocationProcessor_Ping(t *testing.T) {
	t.Parallel()

	processor := NewInvocationProcessor(domain.HubMachine)
	caller := newFakeCaller()

	processor.Process(context.Background(), caller, Invocation{Method: "Ping"})

	require.Equal(t, []string{domain.EventPong}, caller.events())
	assert.Len(t, caller.sent[0].Arguments, 1)
}

func TestInvocationProcessor_ReportsErrors(t *testing.T) {
	t.Parallel()

	processor := NewInvocationProcessor(domain.HubCommand)
	processor.Register("Explode", func(context.Context, Caller, Args) error { return errors.New("boom") })

	cases := map[string]struct {
		inv     Invocation
		allowed bool
		want    string
	}{
		"unknown method": {Invocation{ID: "a", Method: "Nope"}, true, "unknown hub method"},
		"handler error":  {Invocation{ID: "b", Method: "Explode"}, true, "boom"},
		"rate limited":   {Invocation{ID: "c", Method: "Ping"}, false, "too many invocations"},
	}
	for name, tc := range cases {
		caller := newFakeCaller()
		caller.allowed = tc.allowed
		processor.Process(context.Background(), caller, tc.inv)

		require.Len(t, caller.sent, 1, name)
		assert.Equal(t, domain.EventInvocationError, caller.sent[0].Event, name)
		payload, ok := caller.sent[0].Arguments[0].(InvocationError)
		require.True(t, ok, name)
		assert.Equal(t, tc.inv.ID, payload.ID, name)
		assert.Contains(t, payload.Error, tc.want, name)
	}
}

func TestInvocationProcessor_Methods(t *testing.T) {
	t.Parallel()

	processor := NewInvocationProcessor(domain.HubMachine)
	processor.Register("JoinGroup", func(context.Context, Caller, Args) error { return nil })
	processor.Register("  ", func(context.Context, Caller, Args) error { return nil })
	processor.Register("LeaveGroup", nil)

	assert.Equal(t, []string{"JoinGroup", "Ping"}, processor.Methods())
}

func TestArgs(t *testing.T) {
	t.Parallel()

	args := Args{json.RawMessage(`"Machine_5"`), json.RawMessage(`"12"`), json.RawMessage(`null`), json.RawMessage(`{"a":1}`), json.RawMessage(`1.5`)}

	s, err := args.String(0)
	require.NoError(t, err)
	assert.Equal(t, "Machine_5", s)

	id, err := args.MachineID(1)
	require.NoError(t, err)
	assert.Equal(t, domain.MachineID(12), id)

	_, ok, err := args.OptionalString(2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = args.OptionalString(9)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = args.String(3)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = args.MachineID(4)
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = args.String(2)
	assert.ErrorIs(t, err, ErrInvalidArguments)
}
