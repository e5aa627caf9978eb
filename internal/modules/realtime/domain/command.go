package domain

import "time"

// Command is a machine command as created by the management backend.
type Command struct {
	ID           int64         `json:"id"`
	MachineID    MachineID     `json:"machineId"`
	CommandType  string        `json:"commandType"`
	CommandData  string        `json:"commandData"`
	Status       CommandStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExecutedAt   *time.Time    `json:"executedAt,omitempty"`
	Result       string        `json:"result,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}
