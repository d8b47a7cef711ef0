// Package transport defines request/response DTOs for the requests HTTP API.
package transport

// ListRequestsQuery filters the request listing.
type ListRequestsQuery struct {
	Stage    string `form:"stage"`
	Status   string `form:"status"`
	ClientID string `form:"clientId"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ApplyActionRequest carries an admin-chosen disposition. Status is only
// read when action is update_status.
type ApplyActionRequest struct {
	Action string `json:"action" validate:"required,oneof=keep close delete update_status"`
	Status string `json:"status" validate:"omitempty,max=64"`
	Reason string `json:"reason" validate:"max=500"`
}

// ManualMoveRequest carries a manual pipeline stage override.
type ManualMoveRequest struct {
	ToStage       string `json:"toStage" validate:"required"`
	AllowBackward bool   `json:"allowBackward"`
}

// IngestRequest is the direct API ingestion payload (web forms, integrations).
type IngestRequest struct {
	Channel        string `json:"channel" validate:"required,oneof=whatsapp email web api"`
	ExternalID     string `json:"externalId" validate:"required,max=255"`
	SenderIdentity string `json:"senderIdentity" validate:"required,max=255"`
	Content        string `json:"content" validate:"required"`
}
