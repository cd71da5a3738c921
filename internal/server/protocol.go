// Package server decodes inbound client commands and encodes outbound events
// for the WebSocket protocol surface.
package server

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Client -> server command types.
const (
	cmdJoinRoom    = "joinRoom"
	cmdSendMessage = "sendMessage"
	cmdLeaveRoom   = "leaveRoom"
)

// Server -> client event types.
const (
	eventRoomMessages = "roomMessages"
	eventMessage      = "message"
	eventUserJoined   = "userJoined"
	eventUserLeft     = "userLeft"
	eventRoomUsers    = "roomUsers"
	eventError        = "error"
)

var validate = validator.New()

// commandEnvelope carries the discriminator for an inbound command; the
// payload fields live inline in the same JSON object and are decoded a
// second time into the type-specific payload struct.
type commandEnvelope struct {
	Type string `json:"type"`
}

type joinPayload struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
	UID      string `json:"uid"`
}

type sendPayload struct {
	Text     string `json:"text" validate:"required"`
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
	UID      string `json:"uid"`
}

// Event is the outbound envelope delivered to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func decodeCommand(raw []byte) (commandEnvelope, error) {
	var envelope commandEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return commandEnvelope{}, err
	}
	return envelope, nil
}

func decodeJoin(raw []byte) (joinPayload, error) {
	var payload joinPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return joinPayload{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return joinPayload{}, err
	}
	return payload, nil
}

func decodeSend(raw []byte) (sendPayload, error) {
	var payload sendPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return sendPayload{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return sendPayload{}, err
	}
	return payload, nil
}

func encodeEvent(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Payload: payload})
}
