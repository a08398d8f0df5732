package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/drawserver/broadcast"
	"github.com/wfunc/drawserver/canvas"
	"github.com/wfunc/drawserver/config"
	"github.com/wfunc/drawserver/logger"
	"github.com/wfunc/drawserver/monitor"
	"github.com/wfunc/drawserver/network"
	"github.com/wfunc/drawserver/persistence"
	"github.com/wfunc/drawserver/room"
	drawserver_rpc "github.com/wfunc/drawserver/rpc"
	"github.com/wfunc/drawserver/session"
	"github.com/wfunc/drawserver/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	dispatcher     *broadcast.Dispatcher
	engine         *room.Engine
	monitor        *monitor.Monitor
	rpcServer      *drawserver_rpc.Server
	timers         *timer.Manager
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		monitor:        monitor.NewMonitor("drawserver"),
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.dispatcher = broadcast.NewDispatcher(s.sessionManager)
	compositor := canvas.NewPNGCompositor(cfg.Game.CanvasWidth, cfg.Game.CanvasHeight)
	s.engine = room.NewEngine(db, compositor, s.dispatcher, s.timers, cfg.Game)

	rpcServer, err := drawserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(drawserver_rpc.NewAdminService(db))

	s.monitor.StartServer(cfg.Server.MetricsAddress)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/rooms", s.handleCreateRoom)

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
}

// handleCreateRoom is the HTTP surface: create a room and hand back its
// code before any websocket is opened.
func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		PlayerID    string `json:"playerId"`
		DisplayName string `json:"displayName"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	created, err := s.engine.CreateRoom(body.PlayerID, body.DisplayName)
	if err != nil {
		logger.Log.Errorf("HTTP room creation failed: %v", err)
		http.Error(w, "could not create room", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"roomId": created.ID,
		"code":   created.Code,
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleClose(sess)
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			data, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			s.handleMessage(sess, data)
		}
	}
}

// handleClose marks a still-bound player disconnected so the grace-period
// supervisor takes over.
func (s *GameServer) handleClose(sess *session.Session) {
	roomID, playerID := sess.RoomID(), sess.PlayerID()
	s.sessionManager.Remove(sess.GetID())
	s.monitor.SetActiveRooms(s.sessionManager.RoomCount())

	if roomID == "" || playerID == "" {
		return
	}
	if _, err := s.engine.Disconnect(roomID, playerID); err != nil {
		logger.Log.Warnf("Disconnect of player %s in room %s: %v", playerID, roomID, err)
	}
}

func (s *GameServer) handleMessage(sess *session.Session, data []byte) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	msgType, req, err := network.Decode(data)
	if err != nil {
		logger.Log.Infof("Session %s sent a bad %q message: %v", sess.GetID(), msgType, err)
		s.sendError(sess, err.Error())
		return
	}

	switch r := req.(type) {
	case *network.CreateGameRequest:
		s.handleCreateGame(sess, r)
	case *network.JoinGameRequest:
		s.handleJoinGame(sess, r)
	case *network.SubmitSegmentRequest:
		s.handleSubmitSegment(sess, r)
	case *network.ReconnectGameRequest:
		s.handleReconnectGame(sess, r)
	case *network.RequestGameStateRequest:
		s.handleRequestGameState(sess, r)
	case *network.ClearCanvasRequest:
		s.handleClearCanvas(sess, r)
	case *network.PingRequest:
		sess.Touch()
		sess.Send(network.ServerMessage{Type: network.MsgPong})
	}
}

func (s *GameServer) handleCreateGame(sess *session.Session, req *network.CreateGameRequest) {
	created, err := s.engine.CreateRoom(req.PlayerID, req.DisplayName)
	if err != nil {
		s.replyGameError(sess, err)
		return
	}

	s.bind(sess, req.PlayerID, created.ID)
	view := broadcast.BuildView(created, req.PlayerID)
	sess.Send(network.ServerMessage{
		Type:       network.MsgGameCreated,
		PlayerView: &view,
		PlayerID:   req.PlayerID,
	})
}

func (s *GameServer) handleJoinGame(sess *session.Session, req *network.JoinGameRequest) {
	joined, event, err := s.engine.Join(req.GameCode, req.PlayerID, req.DisplayName)
	if err != nil {
		s.replyGameError(sess, err)
		return
	}

	// The joiner was not yet bound when the engine broadcast the join, so
	// it gets its snapshot directly.
	s.bind(sess, req.PlayerID, joined.ID)
	view := broadcast.BuildView(joined, req.PlayerID)
	sess.Send(network.ServerMessage{
		Type:       event.Type,
		PlayerView: &view,
		PlayerID:   req.PlayerID,
	})
}

func (s *GameServer) handleSubmitSegment(sess *session.Session, req *network.SubmitSegmentRequest) {
	_, event, err := s.engine.Submit(req.RoomID, req.PlayerID, *req.SegmentIndex, req.ImageData)
	if err != nil {
		s.replyGameError(sess, err)
		return
	}

	switch event.Type {
	case network.MsgSegmentAdvanced:
		s.monitor.IncSegmentsAdvanced()
	case network.MsgGameOver:
		s.monitor.IncSegmentsAdvanced()
		s.monitor.IncGamesCompleted()
	}
}

func (s *GameServer) handleReconnectGame(sess *session.Session, req *network.ReconnectGameRequest) {
	rejoined, event, err := s.engine.Reconnect(req.GameCode, req.PlayerID)
	if err != nil {
		s.replyGameError(sess, err)
		return
	}

	s.bind(sess, req.PlayerID, rejoined.ID)
	view := broadcast.BuildView(rejoined, req.PlayerID)
	sess.Send(network.ServerMessage{
		Type:       event.Type,
		PlayerView: &view,
		PlayerID:   req.PlayerID,
	})
}

func (s *GameServer) handleRequestGameState(sess *session.Session, req *network.RequestGameStateRequest) {
	current, err := s.engine.GetRoom(req.RoomID, req.GameCode)
	if err != nil {
		s.replyGameError(sess, err)
		return
	}

	view := broadcast.BuildView(current, req.PlayerID)
	sess.Send(network.ServerMessage{
		Type:       network.MsgGameStateUpdate,
		PlayerView: &view,
		PlayerID:   req.PlayerID,
	})
}

func (s *GameServer) handleClearCanvas(sess *session.Session, req *network.ClearCanvasRequest) {
	if _, err := s.engine.ClearCanvas(req.RoomID); err != nil {
		s.replyGameError(sess, err)
	}
}

func (s *GameServer) bind(sess *session.Session, playerID, roomID string) {
	s.sessionManager.Bind(sess.GetID(), playerID, roomID)
	s.monitor.SetActiveRooms(s.sessionManager.RoomCount())
}

// replyGameError maps the engine's error taxonomy onto an error frame.
// Players only ever see errors for their own invalid actions.
func (s *GameServer) replyGameError(sess *session.Session, err error) {
	var ge *room.GameError
	if errors.As(err, &ge) {
		s.sendError(sess, ge.Message)
		return
	}
	logger.Log.Errorf("Unclassified gameplay error: %v", err)
	s.sendError(sess, "internal error, please retry")
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	if err := sess.Send(network.ServerMessage{
		Type:  network.MsgError,
		Error: message,
	}); err != nil {
		logger.Log.Warnf("Error reply to session %s failed: %v", sess.GetID(), err)
	}
}
