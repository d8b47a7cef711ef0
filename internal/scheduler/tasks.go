package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOutboundDispatch = "messages.outbound.dispatch"

const TaskOutboundSweep = "messages.outbound.sweep"

type OutboundDispatchPayload struct {
	MessageID string `json:"messageId"`
}

func NewOutboundDispatchTask(payload OutboundDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboundDispatch, data), nil
}

func ParseOutboundDispatchPayload(task *asynq.Task) (OutboundDispatchPayload, error) {
	var payload OutboundDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboundDispatchPayload{}, err
	}
	return payload, nil
}

func NewOutboundSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOutboundSweep, nil)
}
