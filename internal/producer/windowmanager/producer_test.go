package windowmanager

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// fakeEventSource feeds a fixed sequence of chunks to the scanner, then
// blocks until closed.
type fakeEventSource struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	closed chan struct{}
}

func newFakeEventSource() *fakeEventSource {
	r, w := io.Pipe()
	return &fakeEventSource{r: r, w: w, closed: make(chan struct{})}
}

func (f *fakeEventSource) Read(p []byte) (int, error) { return f.r.Read(p) }
func (f *fakeEventSource) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return f.r.Close()
}
func (f *fakeEventSource) push(s string) { f.w.Write([]byte(s)) }
func (f *fakeEventSource) hangUp()       { f.w.Close() }

// fakeQuerier answers fixed JSON responses per query string.
type fakeQuerier struct {
	mu        sync.Mutex
	responses map[string]string
}

func (q *fakeQuerier) Query(query string) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	resp, ok := q.responses[query]
	if !ok {
		return nil, fmt.Errorf("no fixture for %q", query)
	}
	return []byte(resp), nil
}

func (q *fakeQuerier) set(query, resp string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.responses[query] = resp
}

func newTestProducer(events EventSource, q *fakeQuerier) (*Producer, *registry.Registry) {
	reg := registry.New()
	metricsReg := metrics.NewRegistry()
	log := zerolog.Nop()
	p := New(events, q, reg, metricsReg, log, 2)
	return p, reg
}

func TestProducerRefreshWindowOnActiveWindowEvent(t *testing.T) {
	events := newFakeEventSource()
	q := &fakeQuerier{responses: map[string]string{
		"j/activewindow":    `{"class":"kitty","title":"zsh"}`,
		"j/activeworkspace": `{"id":1}`,
		"j/workspaces":      `[{"id":1,"windows":2}]`,
	}}
	p, _ := newTestProducer(events, q)

	var mu sync.Mutex
	var gotWindow snapshot.WindowSnapshot
	windowSeen := make(chan struct{}, 4)
	p.OnWindowChange(func(w snapshot.WindowSnapshot) {
		mu.Lock()
		gotWindow = w
		mu.Unlock()
		windowSeen <- struct{}{}
	})

	done := make(chan error, 1)
	go func() { done <- p.Run() }()

	<-windowSeen // initial seed refresh

	q.set("j/activewindow", `{"class":"kitty","title":"vim"}`)
	events.push("activewindow>>kitty,vim\n")
	<-windowSeen

	events.hangUp()
	if err := <-done; err == nil {
		t.Fatal("expected Run to return an error when the event stream closes")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotWindow.Class != "kitty" || gotWindow.Title != "vim" {
		t.Fatalf("got %+v", gotWindow)
	}
}

func TestProducerRefreshWorkspacesOnCreateEvent(t *testing.T) {
	events := newFakeEventSource()
	q := &fakeQuerier{responses: map[string]string{
		"j/activewindow":    `{}`,
		"j/activeworkspace": `{"id":2}`,
		"j/workspaces":      `[{"id":1,"windows":0},{"id":2,"windows":1}]`,
	}}
	p, _ := newTestProducer(events, q)

	workspacesSeen := make(chan snapshot.WorkspaceSnapshot, 4)
	p.OnWorkspacesChange(func(ws snapshot.WorkspaceSnapshot) {
		workspacesSeen <- ws
	})

	done := make(chan error, 1)
	go func() { done <- p.Run() }()

	first := <-workspacesSeen
	if len(first) != 2 || !first[1].Active {
		t.Fatalf("unexpected initial snapshot: %+v", first)
	}

	q.set("j/workspaces", `[{"id":1,"windows":0},{"id":2,"windows":1},{"id":3,"windows":0}]`)
	events.push("createworkspace>>3\n")

	second := <-workspacesSeen
	if len(second) != 3 {
		t.Fatalf("expected 3 workspaces after create event, got %+v", second)
	}

	events.hangUp()
	<-done
}

func TestProducerIgnoresUnrecognizedEventLines(t *testing.T) {
	events := newFakeEventSource()
	q := &fakeQuerier{responses: map[string]string{
		"j/activewindow":    `{}`,
		"j/activeworkspace": `{"id":1}`,
		"j/workspaces":      `[{"id":1,"windows":0}]`,
	}}
	p, _ := newTestProducer(events, q)

	done := make(chan error, 1)
	go func() { done <- p.Run() }()

	events.push(strings.Repeat("unknownevent>>payload\n", 3))
	events.hangUp()

	if err := <-done; err == nil {
		t.Fatal("expected error on stream close")
	}
}
