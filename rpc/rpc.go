package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/drawserver/logger"
	"github.com/wfunc/drawserver/models"
	"github.com/wfunc/drawserver/persistence"
	"github.com/wfunc/drawserver/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only room inspection over net/rpc for
// operators. Methods follow the net/rpc signature rules.
type AdminService struct {
	db       persistence.Database
	artworks *services.ArtworkService
}

func NewAdminService(db persistence.Database) *AdminService {
	return &AdminService{
		db:       db,
		artworks: services.NewArtworkService(db),
	}
}

type InspectRoomArgs struct {
	Code string
}

type RoomSummary struct {
	RoomID         string
	Code           string
	Status         string
	Players        []string
	CurrentSegment int
	SegmentCount   int
	SubmittedCount int
}

func (a *AdminService) InspectRoom(args *InspectRoomArgs, reply *RoomSummary) error {
	room, err := a.db.LoadRoomByCode(args.Code)
	if err != nil {
		return err
	}
	*reply = RoomSummary{
		RoomID:         room.ID,
		Code:           room.Code,
		Status:         string(room.Status),
		Players:        room.Players,
		CurrentSegment: room.CurrentSegment,
		SegmentCount:   room.SegmentCount,
		SubmittedCount: len(room.Submitted),
	}
	return nil
}

type ArtworksArgs struct {
	Code string
}

type ArtworksReply struct {
	Records []models.ArtworkRecord
}

func (a *AdminService) GetArtworks(args *ArtworksArgs, reply *ArtworksReply) error {
	records, err := a.artworks.GetByCode(args.Code)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}
