package broker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

var received = time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("ICT", 7*3600))

func TestDecodeIngestEvent_Envelope(t *testing.T) {
	t.Parallel()

	event, err := decodeIngestEvent(kafka.Message{
		Topic: "mms.machines",
		Value: []byte(`{"hub":"machine","event":"MachineStatusUpdated","data":{"machineId":1,"status":"Online"}}`),
	}, received)
	require.NoError(t, err)

	assert.Equal(t, "machine", event.Hub)
	assert.Equal(t, "MachineStatusUpdated", event.Event)
	assert.JSONEq(t, `{"machineId":1,"status":"Online"}`, string(event.Data))
	assert.Equal(t, "mms.machines", event.Source)
	assert.Equal(t, received.UTC(), event.ReceivedAt)
}

func TestDecodeIngestEvent_HeadersFillMissingNames(t *testing.T) {
	t.Parallel()

	event, err := decodeIngestEvent(kafka.Message{
		Topic:   "mms.logs",
		Headers: []kafka.Header{{Key: "Hub", Value: []byte("log")}, {Key: "event", Value: []byte(" NewLogEntry ")}},
		Value:   []byte(`{"data":{"machineId":4,"level":"Error"}}`),
	}, received)
	require.NoError(t, err)

	assert.Equal(t, "log", event.Hub)
	assert.Equal(t, "NewLogEntry", event.Event)
	assert.JSONEq(t, `{"machineId":4,"level":"Error"}`, string(event.Data))
}

func TestDecodeIngestEvent_BarePayloadUsesTopicSuffix(t *testing.T) {
	t.Parallel()

	value := `{"machineId":9,"timestamp":"2024-01-02T03:04:05Z"}`
	event, err := decodeIngestEvent(kafka.Message{Topic: "mms.machine.MachineHeartbeatReceived", Value: []byte(value)}, received)
	require.NoError(t, err)

	assert.Empty(t, event.Hub)
	assert.Equal(t, "MachineHeartbeatReceived", event.Event)
	assert.Equal(t, json.RawMessage(value), event.Data)
}

func TestDecodeIngestEvent_MachineIDFromEnvelopeOrHeader(t *testing.T) {
	t.Parallel()

	event, err := decodeIngestEvent(kafka.Message{
		Topic: "mms.commands",
		Value: []byte(`{"hub":"command","event":"CommandExecutionResult","machineId":"5","data":[41,"Completed","ok",null]}`),
	}, received)
	require.NoError(t, err)
	require.NotNil(t, event.MachineID)
	assert.Equal(t, domain.MachineID(5), *event.MachineID)
	assert.JSONEq(t, `[41,"Completed","ok",null]`, string(event.Data))

	event, err = decodeIngestEvent(kafka.Message{
		Topic:   "mms.commands.NewCommand",
		Headers: []kafka.Header{{Key: "MachineId", Value: []byte("7")}},
		Value:   []byte(`{"id":3,"commandType":"STOP"}`),
	}, received)
	require.NoError(t, err)
	require.NotNil(t, event.MachineID)
	assert.Equal(t, domain.MachineID(7), *event.MachineID)

	_, err = decodeIngestEvent(kafka.Message{
		Topic:   "mms.commands.NewCommand",
		Headers: []kafka.Header{{Key: "machineId", Value: []byte("seven")}},
		Value:   []byte(`{"id":3}`),
	}, received)
	assert.ErrorIs(t, err, ErrUndecodableMessage)
}

func TestDecodeIngestEvent_RejectsNonJSON(t *testing.T) {
	t.Parallel()

	for name, value := range map[string]string{
		"empty":     "",
		"blank":     "   ",
		"plaintext": "machine 4 is down",
	} {
		_, err := decodeIngestEvent(kafka.Message{Topic: "mms.machines", Value: []byte(value)}, received)
		assert.ErrorIs(t, err, ErrUndecodableMessage, name)
	}
}
