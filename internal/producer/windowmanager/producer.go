// Package windowmanager implements the event-socket reader and
// command-socket querier producer for the focused-window and workspace
// feeds (spec §4.5). The window manager itself is an opaque external
// collaborator: this package only depends on the two capability
// interfaces below, never on a concrete WM client.
package windowmanager

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/broadcast"
	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// EventSource is the event-socket connection delivering newline-separated
// "name>>payload" lines.
type EventSource interface {
	io.Reader
	Close() error
}

// CommandQuerier answers the command-socket JSON queries
// (j/activewindow, j/activeworkspace, j/workspaces).
type CommandQuerier interface {
	Query(query string) ([]byte, error)
}

// Producer owns the WindowSnapshot and WorkspaceSnapshot producer states.
type Producer struct {
	events   EventSource
	commands CommandQuerier
	reg      *registry.Registry
	metrics  *metrics.Registry
	log      zerolog.Logger

	broadcastAttempts int

	mu         sync.Mutex
	window     snapshot.WindowSnapshot
	workspaces snapshot.WorkspaceSnapshot

	onWindowChange     func(snapshot.WindowSnapshot)
	onWorkspacesChange func(snapshot.WorkspaceSnapshot)
}

// New constructs a Producer. onWindowChange/onWorkspacesChange, if
// non-nil, are called after every broadcast so the daemon can mirror the
// snapshot into its shared FeedStates for new-subscriber seeding.
func New(events EventSource, commands CommandQuerier, reg *registry.Registry, metricsReg *metrics.Registry, log zerolog.Logger, broadcastAttempts int) *Producer {
	return &Producer{
		events:            events,
		commands:          commands,
		reg:               reg,
		metrics:           metricsReg,
		log:               log,
		broadcastAttempts: broadcastAttempts,
	}
}

// OnWindowChange registers a callback invoked after every window broadcast.
func (p *Producer) OnWindowChange(f func(snapshot.WindowSnapshot)) { p.onWindowChange = f }

// OnWorkspacesChange registers a callback invoked after every workspaces broadcast.
func (p *Producer) OnWorkspacesChange(f func(snapshot.WorkspaceSnapshot)) {
	p.onWorkspacesChange = f
}

// Run reads the event stream until it closes, refreshing and broadcasting
// window/workspace snapshots on meaningful changes. A closed event stream
// is fatal for the producer, per spec §4.5 and §7 ("the window manager is
// considered a hard dependency").
func (p *Producer) Run() error {
	defer p.events.Close()

	// Seed an initial snapshot so the first subscriber sees real data
	// rather than empty zero values.
	if err := p.refreshWindow(); err != nil {
		p.log.Debug().Err(err).Msg("initial window refresh failed")
	}
	if err := p.refreshWorkspaces(); err != nil {
		p.log.Debug().Err(err).Msg("initial workspaces refresh failed")
	}

	scanner := bufio.NewScanner(p.events)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Each scanned line is classified on its own, so consecutive identical
	// events are not collapsed before a refresh; a repeated event re-runs
	// the refresh, and the value comparison in refreshWindow and
	// refreshWorkspaces keeps it from producing a second broadcast.
	for scanner.Scan() {
		chunk := scanner.Text()
		events := classifyChunk(chunk)
		if len(events) == 0 {
			continue
		}

		if containsEvent(events, eventWindowChanged) {
			if err := p.refreshWindow(); err != nil {
				p.log.Debug().Err(err).Msg("refresh window failed")
			}
			if err := p.refreshWorkspaces(); err != nil {
				p.log.Debug().Err(err).Msg("refresh workspaces failed")
			}
		} else if containsEvent(events, eventWorkspaceCreated) || containsEvent(events, eventWorkspaceDestroyed) {
			if err := p.refreshWorkspaces(); err != nil {
				p.log.Debug().Err(err).Msg("refresh workspaces failed")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("windowmanager: event stream: %w", err)
	}
	return fmt.Errorf("windowmanager: event stream closed")
}

type activeWindowResponse struct {
	Class string `json:"class"`
	Title string `json:"title"`
}

func (p *Producer) refreshWindow() error {
	raw, err := p.commands.Query("j/activewindow")
	if err != nil {
		return err
	}

	var resp activeWindowResponse
	// An empty/"{}"-only payload (no focused window) is not an error; the
	// fields simply default to empty strings, per spec §4.5 step 4.
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &resp)
	}

	next := snapshot.WindowSnapshot{Class: resp.Class, Title: resp.Title}

	p.mu.Lock()
	changed := !p.window.Equal(next)
	if changed {
		p.window = next
	}
	p.mu.Unlock()

	if !changed {
		return nil
	}

	payload := snapshot.EncodeWindow(next)
	if err := broadcast.Send(p.reg, p.metrics, ipc.KindWindow, payload, p.broadcastAttempts); err != nil && err != broadcast.ErrNoSubscriber {
		p.log.Debug().Err(err).Msg("broadcast window")
	}
	if p.onWindowChange != nil {
		p.onWindowChange(next)
	}
	return nil
}

type activeWorkspaceResponse struct {
	ID int `json:"id"`
}

type workspaceEntry struct {
	ID      int `json:"id"`
	Windows int `json:"windows"`
}

func (p *Producer) refreshWorkspaces() error {
	var activeID int
	var entries []workspaceEntry
	var activeErr, listErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		raw, err := p.commands.Query("j/activeworkspace")
		if err != nil {
			activeErr = err
			return
		}
		var resp activeWorkspaceResponse
		activeErr = json.Unmarshal(raw, &resp)
		activeID = resp.ID
	}()
	go func() {
		defer wg.Done()
		raw, err := p.commands.Query("j/workspaces")
		if err != nil {
			listErr = err
			return
		}
		listErr = json.Unmarshal(raw, &entries)
	}()
	wg.Wait()

	if activeErr != nil {
		return activeErr
	}
	if listErr != nil {
		return listErr
	}

	next := make(snapshot.WorkspaceSnapshot, 0, len(entries))
	for _, e := range entries {
		next = append(next, snapshot.Workspace{
			ID:       uint32(e.ID),
			Occupied: e.Windows > 0,
			Active:   e.ID == activeID,
		})
	}

	p.mu.Lock()
	changed := !p.workspaces.Equal(next)
	if changed {
		p.workspaces = next
	}
	p.mu.Unlock()

	if !changed {
		return nil
	}

	payload := snapshot.EncodeWorkspaces(next)
	if err := broadcast.Send(p.reg, p.metrics, ipc.KindWorkspaces, payload, p.broadcastAttempts); err != nil && err != broadcast.ErrNoSubscriber {
		p.log.Debug().Err(err).Msg("broadcast workspaces")
	}
	if p.onWorkspacesChange != nil {
		p.onWorkspacesChange(next)
	}
	return nil
}
