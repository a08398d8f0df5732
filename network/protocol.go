package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/drawserver/models"
)

// Inbound message types. Anything else is rejected at the boundary.
const (
	MsgCreateGame       = "createGame"
	MsgJoinGame         = "joinGame"
	MsgSubmitSegment    = "submitSegment"
	MsgReconnectGame    = "reconnectGame"
	MsgRequestGameState = "requestGameState"
	MsgClearCanvas      = "clearCanvas"
	MsgPing             = "ping"
)

// Outbound message types.
const (
	MsgGameCreated           = "gameCreated"
	MsgPlayerJoined          = "playerJoined"
	MsgGameStarted           = "gameStarted"
	MsgGameStateUpdate       = "gameStateUpdate"
	MsgPlayerSubmitted       = "playerSubmitted"
	MsgSegmentAdvanced       = "segmentAdvanced"
	MsgPlayerDisconnected    = "playerDisconnected"
	MsgPlayerReconnected     = "playerReconnected"
	MsgPlayerPermanentlyGone = "playerPermanentlyDisconnected"
	MsgGameOver              = "gameOver"
	MsgError                 = "error"
	MsgPong                  = "pong"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// Request is an inbound message decoded into its concrete variant.
type Request interface {
	Validate() error
}

type CreateGameRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

func (r *CreateGameRequest) Validate() error {
	if r.PlayerID == "" {
		return errors.New("playerId is required")
	}
	if r.DisplayName == "" {
		return errors.New("displayName is required")
	}
	return nil
}

type JoinGameRequest struct {
	GameCode    string `json:"gameCode"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

func (r *JoinGameRequest) Validate() error {
	if r.GameCode == "" {
		return errors.New("gameCode is required")
	}
	if r.PlayerID == "" {
		return errors.New("playerId is required")
	}
	if r.DisplayName == "" {
		return errors.New("displayName is required")
	}
	return nil
}

type SubmitSegmentRequest struct {
	RoomID       string `json:"roomId"`
	PlayerID     string `json:"playerId"`
	SegmentIndex *int   `json:"segmentIndex"`
	ImageData    string `json:"imageData"`
}

func (r *SubmitSegmentRequest) Validate() error {
	if r.RoomID == "" {
		return errors.New("roomId is required")
	}
	if r.PlayerID == "" {
		return errors.New("playerId is required")
	}
	if r.SegmentIndex == nil {
		return errors.New("segmentIndex is required")
	}
	if r.ImageData == "" {
		return errors.New("imageData is required")
	}
	return nil
}

type ReconnectGameRequest struct {
	GameCode string `json:"gameCode"`
	PlayerID string `json:"playerId"`
}

func (r *ReconnectGameRequest) Validate() error {
	if r.GameCode == "" {
		return errors.New("gameCode is required")
	}
	if r.PlayerID == "" {
		return errors.New("playerId is required")
	}
	return nil
}

type RequestGameStateRequest struct {
	RoomID   string `json:"roomId"`
	GameCode string `json:"gameCode"`
	PlayerID string `json:"playerId"`
}

func (r *RequestGameStateRequest) Validate() error {
	if r.RoomID == "" && r.GameCode == "" {
		return errors.New("roomId or gameCode is required")
	}
	if r.PlayerID == "" {
		return errors.New("playerId is required")
	}
	return nil
}

type ClearCanvasRequest struct {
	RoomID string `json:"roomId"`
}

func (r *ClearCanvasRequest) Validate() error {
	if r.RoomID == "" {
		return errors.New("roomId is required")
	}
	return nil
}

type PingRequest struct{}

func (r *PingRequest) Validate() error { return nil }

// Decode parses a raw inbound frame into its typed request and validates
// required fields. Unknown types fail with ErrUnknownMessageType.
func Decode(data []byte) (string, Request, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", nil, fmt.Errorf("malformed message: %w", err)
	}

	var req Request
	switch envelope.Type {
	case MsgCreateGame:
		req = &CreateGameRequest{}
	case MsgJoinGame:
		req = &JoinGameRequest{}
	case MsgSubmitSegment:
		req = &SubmitSegmentRequest{}
	case MsgReconnectGame:
		req = &ReconnectGameRequest{}
	case MsgRequestGameState:
		req = &RequestGameStateRequest{}
	case MsgClearCanvas:
		req = &ClearCanvasRequest{}
	case MsgPing:
		req = &PingRequest{}
	default:
		return envelope.Type, nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}

	if err := json.Unmarshal(data, req); err != nil {
		return envelope.Type, nil, fmt.Errorf("malformed %s message: %w", envelope.Type, err)
	}
	if err := req.Validate(); err != nil {
		return envelope.Type, nil, err
	}
	return envelope.Type, req, nil
}

// ServerMessage is the outbound frame. When View is set its fields are
// flattened into the top level, so every gameplay message carries the full
// render state for the receiving player.
type ServerMessage struct {
	Type string `json:"type"`
	*models.PlayerView
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}
