// Package main runs a demo WebSocket client against a live map session.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Open a map session as a supervisor
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/map/ws", RawQuery: "width=1280"}
	hdr := http.Header{}
	hdr.Set("X-Role", "SUPERVISOR")
	hdr.Set("X-Viewer-Id", "demo-supervisor")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame map[string]any
			if err := c.ReadJSON(&frame); err != nil {
				log.Printf("read: %v", err)
				return
			}
			raw, _ := json.Marshal(frame)
			log.Printf("WS <- %s", raw)
		}
	}()

	// Narrow the view, then create a mission to trigger a live rebuild
	time.Sleep(500 * time.Millisecond)
	filterMsg := map[string]any{
		"type":   "filter",
		"filter": map[string]any{"view": "missions"},
	}
	if err := c.WriteJSON(filterMsg); err != nil {
		log.Fatal(err)
	}

	time.Sleep(time.Second)
	body := []byte(`{"title":"Mission démo","commune":"Anfa"}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/missions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "SUPERVISOR")
	req.Header.Set("X-Viewer-Id", "demo-supervisor")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("mission create: %s", resp.Status)

	// Wait briefly to receive the rebuild frames
	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
