package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// sunshift-watch subscribes to the sunshiftd state feed and prints every
// frame. Useful for status bars and debugging the schedule.

// stateFrame mirrors the daemon's broadcast envelope.
type stateFrame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// daemonStatus mirrors the daemon's status payload.
type daemonStatus struct {
	Filter      string     `json:"filter"`
	Override    string     `json:"override"`
	Temperature int        `json:"temperature_k"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
	NextWake    time.Time  `json:"next_wake"`
	DriverOK    bool       `json:"driver_ok"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3661/ws", "sunshiftd state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON frames instead of formatted output")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping ticker keeps the connection alive across idle stretches; the
	// schedule can go hours between frames.
	pingTicker := time.NewTicker(20 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", string(message))
				continue
			}
			printFrame(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printFrame formats a state frame for the terminal.
func printFrame(message []byte) {
	var frame stateFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	var st daemonStatus
	if err := json.Unmarshal(frame.Data, &st); err != nil {
		prettyJSON, _ := json.MarshalIndent(frame, "", "  ")
		fmt.Printf("[%s]\n%s\n\n", frame.Type, string(prettyJSON))
		return
	}

	fmt.Printf("[%s] filter=%s override=%s temp=%dK driver_ok=%v\n",
		frame.Type, st.Filter, st.Override, st.Temperature, st.DriverOK)
	if st.Sunrise != nil && st.Sunset != nil {
		fmt.Printf("        sunrise=%s sunset=%s\n",
			st.Sunrise.Local().Format("15:04:05"), st.Sunset.Local().Format("15:04:05"))
	}
	fmt.Printf("        next_wake=%s\n", st.NextWake.Local().Format("2006-01-02 15:04:05"))
}
