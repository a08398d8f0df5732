package network

import (
	"errors"
	"testing"
)

func TestDecode_JoinGame(t *testing.T) {
	data := []byte(`{"type":"joinGame","gameCode":"AB12","playerId":"p1","displayName":"Alice"}`)

	msgType, req, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msgType != MsgJoinGame {
		t.Errorf("Expected type %s, got %s", MsgJoinGame, msgType)
	}

	join, ok := req.(*JoinGameRequest)
	if !ok {
		t.Fatalf("Expected *JoinGameRequest, got %T", req)
	}
	if join.GameCode != "AB12" || join.PlayerID != "p1" || join.DisplayName != "Alice" {
		t.Errorf("Fields not decoded: %+v", join)
	}
}

func TestDecode_SubmitSegmentZeroIndex(t *testing.T) {
	// segmentIndex 0 is valid and must not read as missing.
	data := []byte(`{"type":"submitSegment","roomId":"r1","playerId":"p1","segmentIndex":0,"imageData":"data:image/png;base64,xx"}`)

	_, req, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	submit := req.(*SubmitSegmentRequest)
	if submit.SegmentIndex == nil || *submit.SegmentIndex != 0 {
		t.Errorf("Expected segment index 0, got %v", submit.SegmentIndex)
	}
}

func TestDecode_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"join without code", `{"type":"joinGame","playerId":"p1","displayName":"A"}`},
		{"join without player", `{"type":"joinGame","gameCode":"AB12","displayName":"A"}`},
		{"submit without segment", `{"type":"submitSegment","roomId":"r1","playerId":"p1","imageData":"x"}`},
		{"submit without image", `{"type":"submitSegment","roomId":"r1","playerId":"p1","segmentIndex":1}`},
		{"reconnect without player", `{"type":"reconnectGame","gameCode":"AB12"}`},
		{"state without room or code", `{"type":"requestGameState","playerId":"p1"}`},
		{"clear without room", `{"type":"clearCanvas"}`},
		{"create without name", `{"type":"createGame","playerId":"p1"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, _, err := Decode([]byte(c.data)); err == nil {
				t.Errorf("Expected validation error for %s", c.data)
			}
		})
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, _, err := Decode([]byte(`{"type":"launchMissiles"}`))
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("Expected ErrUnknownMessageType, got %v", err)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, _, err := Decode([]byte(`{{{`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestDecode_StateByCodeOnly(t *testing.T) {
	data := []byte(`{"type":"requestGameState","gameCode":"AB12","playerId":"p1"}`)
	if _, _, err := Decode(data); err != nil {
		t.Errorf("gameCode alone should satisfy requestGameState, got %v", err)
	}
}
