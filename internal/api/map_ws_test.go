package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"geowatch/internal/model"
)

func dialMapWS(t *testing.T, s *Server, query string, headers map[string]string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/map/ws" + query
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, h)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn, until func(ops map[string]int) bool) map[string]int {
	t.Helper()
	ops := map[string]int{}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			continue
		}
		op, _ := frame["op"].(string)
		ops[op]++
		if until(ops) {
			return ops
		}
	}
	return ops
}

func TestMapWSRequiresViewer(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/map/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded without viewer identity")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %v, want 401", resp)
	}
}

func TestMapWSInitialRender(t *testing.T) {
	s := newTestServer(t)
	conn := dialMapWS(t, s, "?width=1280", map[string]string{"X-Role": model.RoleAdmin})

	ops := readFrames(t, conn, func(ops map[string]int) bool {
		return ops["marker"] >= 5
	})
	if ops["canvas"] != 1 {
		t.Fatalf("canvas frames = %d, ops %v", ops["canvas"], ops)
	}
	if ops["tileLayer"] != 1 {
		t.Fatalf("tileLayer frames = %d", ops["tileLayer"])
	}
	if ops["clear"] < 1 {
		t.Fatal("no clear before markers")
	}
	// Five seeded records, under the clustering threshold.
	if ops["marker"] != 5 {
		t.Fatalf("markers = %d, want 5", ops["marker"])
	}
	if ops["clusterGroup"] != 0 {
		t.Fatal("clustered below threshold")
	}
}

func TestMapWSKeyAndNavigate(t *testing.T) {
	s := newTestServer(t)
	conn := dialMapWS(t, s, "", map[string]string{"X-Role": model.RoleAdmin})

	// Drain the initial render.
	readFrames(t, conn, func(ops map[string]int) bool { return ops["marker"] >= 5 })

	if err := conn.WriteJSON(map[string]any{"type": "key", "key": "ArrowUp"}); err != nil {
		t.Fatal(err)
	}
	ops := readFrames(t, conn, func(ops map[string]int) bool { return ops["panBy"] >= 1 })
	if ops["panBy"] != 1 {
		t.Fatalf("panBy frames = %d, ops %v", ops["panBy"], ops)
	}

	if err := conn.WriteJSON(map[string]any{"type": "mission-detail", "id": "m-42"}); err != nil {
		t.Fatal(err)
	}
	ops = readFrames(t, conn, func(ops map[string]int) bool { return ops["navigate"] >= 1 })
	if ops["navigate"] != 1 {
		t.Fatalf("navigate frames = %d", ops["navigate"])
	}
}

func TestMapWSRecordChangeTriggersRebuild(t *testing.T) {
	s := newTestServer(t)
	conn := dialMapWS(t, s, "", map[string]string{"X-Role": model.RoleAdmin})

	readFrames(t, conn, func(ops map[string]int) bool { return ops["marker"] >= 5 })

	// A mission created through the REST surface shows up as a second
	// wholesale rebuild on the live session.
	rec := doRequest(t, s, http.MethodPost, "/v1/missions",
		strings.NewReader(`{"title":"Live","commune":"Anfa"}`), adminHeaders())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	ops := readFrames(t, conn, func(ops map[string]int) bool { return ops["marker"] >= 6 })
	if ops["clear"] < 1 || ops["marker"] < 6 {
		t.Fatalf("no rebuild after record change, ops %v", ops)
	}
}
