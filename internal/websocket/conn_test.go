package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// The countdown goroutine pushes warnings and the graded result while
// the read loop writes action responses. Both paths go through Conn,
// which must serialize them; gorilla panics on concurrent writes.
func TestConnSerializesConcurrentWriters(t *testing.T) {
	const (
		writers          = 4
		messagesPerGoro  = 50
		expectedMessages = writers * messagesPerGoro
	)

	upgrader := websocket.Upgrader{}
	serverDone := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(serverDone)

		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn := NewConn(raw)
		defer conn.Close()

		var wg sync.WaitGroup
		for g := 0; g < writers; g++ {
			wg.Add(1)
			go func(minutes int) {
				defer wg.Done()
				for i := 0; i < messagesPerGoro; i++ {
					if err := conn.WriteTyped(WarningResponse{Event: EventWarning, MinutesLeft: minutes}); err != nil {
						t.Errorf("write: %v", err)
						return
					}
				}
			}(g)
		}
		wg.Wait()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	for got := 0; got < expectedMessages; got++ {
		if _, _, err := client.ReadMessage(); err != nil {
			t.Fatalf("read message %d: %v", got, err)
		}
	}
	<-serverDone
}
