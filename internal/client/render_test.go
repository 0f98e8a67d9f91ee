package client

import (
	"encoding/json"
	"testing"

	"github.com/lulkien/hyprvisor/internal/snapshot"
)

func intPtr(n int) *int { return &n }

func TestRenderWorkspacesNoFixIsPassthrough(t *testing.T) {
	ws := snapshot.WorkspaceSnapshot{{ID: 3, Occupied: true, Active: true}}
	out, err := RenderWorkspaces(ws, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WorkspaceSnapshot
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestRenderWorkspacesZeroFixIsNoOp(t *testing.T) {
	ws := snapshot.WorkspaceSnapshot{{ID: 5, Occupied: false, Active: false}}
	out, err := RenderWorkspaces(ws, intPtr(0))
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WorkspaceSnapshot
	json.Unmarshal([]byte(out), &got)
	if len(got) != 1 || got[0].ID != 5 {
		t.Fatalf("fix=0 should be a no-op, got %+v", got)
	}
}

func TestRenderWorkspacesPadsAndSorts(t *testing.T) {
	ws := snapshot.WorkspaceSnapshot{
		{ID: 3, Occupied: true, Active: true},
		{ID: 1, Occupied: false, Active: false},
	}
	out, err := RenderWorkspaces(ws, intPtr(5))
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WorkspaceSnapshot
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 padded entries, got %d: %+v", len(got), got)
	}
	for i, w := range got {
		wantID := uint32(i + 1)
		if w.ID != wantID {
			t.Fatalf("entry %d: got id %d, want %d (%+v)", i, w.ID, wantID, got)
		}
	}
	if !got[2].Active || !got[2].Occupied {
		t.Fatalf("expected workspace 3 to retain its received values: %+v", got[2])
	}
	if got[0].Occupied || got[3].Occupied {
		t.Fatalf("expected padded defaults to be unoccupied: %+v", got)
	}
}

func TestRenderWorkspacesPreservesIDsAboveFix(t *testing.T) {
	ws := snapshot.WorkspaceSnapshot{{ID: 12, Occupied: true, Active: true}}
	out, err := RenderWorkspaces(ws, intPtr(3))
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WorkspaceSnapshot
	json.Unmarshal([]byte(out), &got)
	if len(got) != 4 {
		t.Fatalf("expected 3 padded + 1 overflow entry, got %+v", got)
	}
	if got[3].ID != 12 {
		t.Fatalf("expected overflow entry last after sort, got %+v", got)
	}
}

func TestRenderWindowTruncatesTitle(t *testing.T) {
	w := snapshot.WindowSnapshot{Class: "kitty", Title: "a very long terminal title"}
	out, err := RenderWindow(w, intPtr(6))
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WindowSnapshot
	json.Unmarshal([]byte(out), &got)
	if got.Title != "a very..." {
		t.Fatalf("got title %q", got.Title)
	}
	if got.Class != "kitty" {
		t.Fatalf("class should be untouched, got %q", got.Class)
	}
}

func TestRenderWindowNoTruncationWhenUnset(t *testing.T) {
	w := snapshot.WindowSnapshot{Class: "kitty", Title: "short"}
	out, err := RenderWindow(w, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WindowSnapshot
	json.Unmarshal([]byte(out), &got)
	if got.Title != "short" {
		t.Fatalf("got %q", got.Title)
	}
}

func TestRenderWifiTruncatesSSID(t *testing.T) {
	w := snapshot.WifiSnapshot{State: snapshot.WifiConnected, SSID: "MyHomeNetwork5G", Icon: snapshot.WifiConnected.Icon()}
	out, err := RenderWifi(w, intPtr(4))
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.WifiSnapshot
	json.Unmarshal([]byte(out), &got)
	if got.SSID != "MyHo..." {
		t.Fatalf("got ssid %q", got.SSID)
	}
}

func TestRenderBluetoothNeverTruncates(t *testing.T) {
	b := snapshot.BluetoothSnapshot{Powered: true, Connected: []snapshot.BluetoothDevice{
		{Name: "A very long bluetooth device name indeed", Address: "AA:BB:CC:DD:EE:FF"},
	}}
	out, err := RenderBluetooth(b)
	if err != nil {
		t.Fatal(err)
	}
	var got snapshot.BluetoothSnapshot
	json.Unmarshal([]byte(out), &got)
	if got.Connected[0].Name != b.Connected[0].Name {
		t.Fatalf("bluetooth name should never truncate, got %q", got.Connected[0].Name)
	}
}
