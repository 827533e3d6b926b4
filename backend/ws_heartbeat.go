package main

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// runWSWritePump drains the send channel onto the connection and keeps
// the peer alive with control-frame pings. It returns when the channel
// closes or a write fails; the caller owns closing the connection.
func runWSWritePump(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := writeWSControl(conn, websocket.PingMessage); err != nil {
				return err
			}
		case msg, ok := <-send:
			if !ok {
				_ = writeWSControl(conn, websocket.CloseMessage)
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		}
	}
}

func writeWSControl(conn *websocket.Conn, messageType int) error {
	return conn.WriteControl(messageType, nil, time.Now().Add(wsWriteWait))
}
