package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

// Minimal interactive client for manual testing. Lines typed on stdin:
//
//	create <playerId> <name>
//	join <code> <playerId> <name>
//	submit <roomId> <playerId> <segment> <imageData>
//	reconnect <code> <playerId>
//	state <roomId> <playerId>
func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s", message)
		}
	}()

	send := func(v interface{}) {
		data, _ := json.Marshal(v)
		log.Printf("-> %s", data)
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Println("Write error:", err)
		}
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "create":
				if len(fields) < 3 {
					log.Println("usage: create <playerId> <name>")
					continue
				}
				send(map[string]string{
					"type": "createGame", "playerId": fields[1], "displayName": fields[2],
				})
			case "join":
				if len(fields) < 4 {
					log.Println("usage: join <code> <playerId> <name>")
					continue
				}
				send(map[string]string{
					"type": "joinGame", "gameCode": fields[1],
					"playerId": fields[2], "displayName": fields[3],
				})
			case "submit":
				if len(fields) < 5 {
					log.Println("usage: submit <roomId> <playerId> <segment> <imageData>")
					continue
				}
				seg, _ := strconv.Atoi(fields[3])
				send(map[string]interface{}{
					"type": "submitSegment", "roomId": fields[1], "playerId": fields[2],
					"segmentIndex": seg, "imageData": fields[4],
				})
			case "reconnect":
				if len(fields) < 3 {
					log.Println("usage: reconnect <code> <playerId>")
					continue
				}
				send(map[string]string{
					"type": "reconnectGame", "gameCode": fields[1], "playerId": fields[2],
				})
			case "state":
				if len(fields) < 3 {
					log.Println("usage: state <roomId> <playerId>")
					continue
				}
				send(map[string]string{
					"type": "requestGameState", "roomId": fields[1], "playerId": fields[2],
				})
			default:
				log.Printf("unknown command %q", fields[0])
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
