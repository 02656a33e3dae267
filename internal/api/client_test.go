package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "/mxcube/api/v0.1/", "tok", 2*time.Second).WithSession("s-1")
}

func TestLoginInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mxcube/api/v0.1/login/login_info" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("X-Client-Session") != "s-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"loggedIn":true,"user":{"username":"mx1","nickname":"Ann","inControl":true,"requestsControl":false,"isstaff":true}}`))
	})

	info, err := c.LoginInfo(context.Background())
	if err != nil {
		t.Fatalf("LoginInfo: %v", err)
	}
	if !info.LoggedIn || info.User.Username != "mx1" || !info.User.InControl || !info.User.IsStaff {
		t.Errorf("info = %+v", info)
	}
}

func TestRemoteAccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"observers":[{"nickname":"bob","ip":"10.0.0.2","requestsControl":true}]}}`))
	})
	ra, err := c.RemoteAccess(context.Background())
	if err != nil {
		t.Fatalf("RemoteAccess: %v", err)
	}
	if len(ra.Observers) != 1 || !ra.Observers[0].RequestsControl || ra.Observers[0].IP != "10.0.0.2" {
		t.Errorf("observers = %+v", ra.Observers)
	}
}

func TestDocuments(t *testing.T) {
	paths := map[string]string{
		"/mxcube/api/v0.1/queue/queue_state":      `{"queue":[]}`,
		"/mxcube/api/v0.1/sample_changer/contents": `{"name":"robot"}`,
		"/mxcube/api/v0.1/harvester/contents":      `{"name":"harvester"}`,
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, ok := paths[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})

	ctx := context.Background()
	if q, err := c.Queue(ctx); err != nil || q["queue"] == nil {
		t.Errorf("Queue = %v, %v", q, err)
	}
	if sc, err := c.SampleChangerContents(ctx); err != nil || sc["name"] != "robot" {
		t.Errorf("SampleChangerContents = %v, %v", sc, err)
	}
	if h, err := c.HarvesterContents(ctx); err != nil || h["name"] != "harvester" {
		t.Errorf("HarvesterContents = %v, %v", h, err)
	}
}

func TestCommands(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.StopQueue(context.Background()); err != nil {
		t.Fatalf("StopQueue: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"PUT /mxcube/api/v0.1/queue/stop", "GET /mxcube/api/v0.1/login/signout"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not logged in", http.StatusForbidden)
	})

	_, err := c.LoginInfo(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusForbidden || se.Body != "not logged in" || se.Path != "login/login_info" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Queue(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
