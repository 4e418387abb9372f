package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStateWS_PushesTransitions(t *testing.T) {
	env := newTestEnv(&fakeGenerator{})
	srv := httptest.NewServer(env.h.Router())
	defer srv.Close()
	cookie := env.newSession(t)

	header := http.Header{}
	header.Set("Cookie", cookie.String())
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if len(resp.Cookies()) != 0 {
		t.Error("existing session must not get a new cookie")
	}

	var msg stateWSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if msg.Type != "state" || msg.State.IsLoading {
		t.Fatalf("unexpected initial message %+v", msg)
	}

	rec := postJSON(env.h.PostGenerate, "/v1/generate", cookie, `{"topic":"垃圾分类"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	// updates are latest-only, so intermediate states may be skipped
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update: %v", err)
		}
		if !msg.State.IsLoading && msg.State.Text != nil {
			break
		}
	}
	if msg.State.Topic != "垃圾分类" || msg.State.ImageURL == "" {
		t.Errorf("unexpected settled state %+v", msg.State)
	}
}

func TestStateWS_NewSessionGetsCookie(t *testing.T) {
	env := newTestEnv(&fakeGenerator{})
	srv := httptest.NewServer(env.h.Router())
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	found := false
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie on upgrade response")
	}
}
