package api

import (
	"sync"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// socketView mirrors a remote viewer's grid. Every accepted SetSlot is sent
// as a slot frame; a failed write makes the manager drop the session.
type socketView struct {
	*vault.GridView

	conn *websocket.Conn
	mu   sync.Mutex
}

func newSocketView(conn *websocket.Conn, size int) *socketView {
	v := &socketView{GridView: vault.NewGridView(size), conn: conn}
	v.OnSet = func(i int, item *model.ItemStack) error {
		return v.send(model.ServerMessage{Type: model.ServerSlot, Slot: i, Item: item})
	}
	return v
}

func (v *socketView) send(msg model.ServerMessage) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return v.conn.WriteJSON(msg)
}

func (v *socketView) sendError(err error) error {
	return v.send(model.ServerMessage{Type: model.ServerError, Error: err.Error()})
}

func (v *socketView) Close() error {
	_ = v.GridView.Close()
	return v.conn.Close()
}
