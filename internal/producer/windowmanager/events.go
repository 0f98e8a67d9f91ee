package windowmanager

import "strings"

// event is the internal classification of one event-socket line.
type event int

const (
	eventIgnored event = iota
	eventWindowChanged
	eventWindow2Changed
	eventWorkspaceChanged
	eventWorkspaceCreated
	eventWorkspaceDestroyed
)

// classifyLine maps one raw "name>>payload" event line to an internal
// event. Anything not recognized is eventIgnored (spec §4.5).
func classifyLine(line string) event {
	name, _, found := strings.Cut(line, ">>")
	if !found {
		name = line
	}
	switch name {
	case "activewindow":
		return eventWindowChanged
	case "activewindowv2":
		return eventWindow2Changed
	case "workspace":
		return eventWorkspaceChanged
	case "createworkspace":
		return eventWorkspaceCreated
	case "destroyworkspace":
		return eventWorkspaceDestroyed
	default:
		return eventIgnored
	}
}

// classifyChunk splits a raw chunk read from the event socket into lines,
// classifies each, and deduplicates consecutive identical events (spec
// §4.5 step 2, and the S6 duplicate-suppression scenario in spec §8).
func classifyChunk(chunk string) []event {
	lines := strings.Split(strings.TrimRight(chunk, "\n"), "\n")

	events := make([]event, 0, len(lines))
	var last event = -1
	for _, line := range lines {
		if line == "" {
			continue
		}
		ev := classifyLine(line)
		if ev == last {
			continue
		}
		events = append(events, ev)
		last = ev
	}
	return events
}

func containsEvent(events []event, target event) bool {
	for _, ev := range events {
		if ev == target {
			return true
		}
	}
	return false
}
