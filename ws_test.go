package main

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-visualizer/marker"
)

func dialHub(t *testing.T, hub *wsHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.handleWebSocket))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readCommand(t *testing.T, conn *websocket.Conn) command {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var cmd command
	require.NoError(t, conn.ReadJSON(&cmd))
	return cmd
}

func TestHub_ReplaysSceneToLateClient(t *testing.T) {
	hub := newHub(nil)
	sess := marker.NewSession(newWSSurface(hub))
	require.NoError(t, sess.HandleLine("map,45.0703,7.6869,none"))
	require.NoError(t, sess.HandleLine("object,7,45.07,7.68,5,90"))

	conn := dialHub(t, hub)

	initCmd := readCommand(t, conn)
	assert.Equal(t, opInit, initCmd.Op)
	assert.Equal(t, latLng{45.0703, 7.6869}, *initCmd.Position)

	create := readCommand(t, conn)
	assert.Equal(t, opCreate, create.Op)
	assert.Equal(t, "plain_car", create.Icon)
	assert.Equal(t, 90.0, *create.Rotation)
	assert.Equal(t, "ID: 7 - Heading: 90 deg", *create.Popup)

	require.Eventually(t, func() bool { return hub.stats().Clients == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, sess.HandleLine("object,7,45.08,7.68,5,361"))
	pos := readCommand(t, conn)
	assert.Equal(t, opPosition, pos.Op)
	assert.Equal(t, create.Handle, pos.Handle)
	assert.Equal(t, latLng{45.08, 7.68}, *pos.Position)

	popup := readCommand(t, conn)
	assert.Equal(t, opPopup, popup.Op)
	assert.Equal(t, "ID: 7 - Heading: unavailable", *popup.Popup)

	icon := readCommand(t, conn)
	assert.Equal(t, opIcon, icon.Op)
	assert.Equal(t, "circle", icon.Icon)
}

func TestHub_DropsClosedClient(t *testing.T) {
	hub := newHub(nil)
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.stats().Clients == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.stats().Clients == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnencodableCommandKeepsScene(t *testing.T) {
	hub := newHub(nil)
	surface := newWSSurface(hub)
	require.NoError(t, surface.InitMap(marker.LatLon(45, 7.6), ""))
	h, err := surface.CreateMarker(marker.LatLon(45, 7.6), marker.IconPlainCar)
	require.NoError(t, err)

	assert.Error(t, surface.SetRotation(h, math.Inf(-1)))
	assert.Equal(t, 0.0, hub.scene.markers[h].rotation)

	conn := dialHub(t, hub)
	assert.Equal(t, opInit, readCommand(t, conn).Op)
	assert.Equal(t, opCreate, readCommand(t, conn).Op)
	require.Eventually(t, func() bool { return hub.stats().Clients == 1 }, time.Second, 10*time.Millisecond)
}
