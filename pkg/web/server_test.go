package web

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/periph.go/pkg/pca9685"
	"github.com/robotalks/periph.go/pkg/recovery"
	"github.com/robotalks/periph.go/pkg/telemetry"
)

func TestReadingsSnapshot(t *testing.T) {
	feed := telemetry.NewFeed()
	feed.Post(telemetry.Snapshot{Device: "dht22", Data: json.RawMessage(`{"humidity":65.2}`)})
	feed.Post(telemetry.Snapshot{Device: "mpu6050", Data: json.RawMessage(`{"temperature":36.5}`)})
	s := NewServer(":0", feed)
	s.Boards = func() []pca9685.BoardInfo {
		return []pca9685.BoardInfo{{ID: 0, Addr: 0x40, State: recovery.Ready}}
	}

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/readings")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Readings map[string]json.RawMessage `json:"readings"`
		Boards   []pca9685.BoardInfo        `json:"boards"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Readings, 2)
	require.JSONEq(t, `{"humidity":65.2}`, string(body.Readings["dht22"]))
	require.Len(t, body.Boards, 1)
	require.Equal(t, uint8(0x40), body.Boards[0].Addr)
}

func TestReadingsEmpty(t *testing.T) {
	s := NewServer(":0", telemetry.NewFeed())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/readings")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Readings map[string]json.RawMessage `json:"readings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Empty(t, body.Readings)
}

func TestStreamDeliversSnapshots(t *testing.T) {
	feed := telemetry.NewFeed()
	s := NewServer(":0", feed)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	// The handler subscribes after the handshake, so keep posting
	// until a frame comes back.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			feed.Post(telemetry.Snapshot{Device: "dht22", Data: json.RawMessage(`{"humidity":65.2}`)})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg string
	require.NoError(t, websocket.Message.Receive(ws, &msg))

	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal([]byte(msg), &snap))
	require.Equal(t, "dht22", snap.Device)
	require.JSONEq(t, `{"humidity":65.2}`, string(snap.Data))
}
