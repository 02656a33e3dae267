package state

import (
	"maps"
	"slices"
)

const (
	maxLogEntries   = 500
	maxUserMessages = 100
	maxChatLines    = 200
)

// Data is the whole application state. Store hands out copies; nested
// maps are never modified in place, so a copy stays valid after later
// mutations.
type Data struct {
	Login          LoginInfo
	Observers      []Observer
	ConnectionLost bool

	Motors          map[string]Motor
	Shapes          map[string]any
	PixelsPerMm     []float64
	Beam            map[string]any
	HardwareObjects map[string]map[string]any
	EnergyScans     map[string]EnergyScan
	Phase           string
	ClickCentring   bool
	VideoOverlay    Overlay
	Actions         map[string]ActionState
	Plots           map[string]Plot

	Queue            map[string]any
	QueueStatus      string
	QueueTasks       map[string]map[string]any
	Tasks            map[string]TaskRecord
	LimsData         map[string]any
	Display          map[string]DisplayEntry
	SampleAttributes map[string]map[string]any
	CurrentSample    string
	DiffractionPlans []map[string]any

	WaitDialog        *WaitDialogRequest
	ResumeQueueDialog bool
	WorkflowDialog    ParametersDialog
	GphlDialog        ParametersDialog

	Logs         []LogEntry
	UserMessages []LogEntry
	Chat         []string
	UnreadChat   int

	SampleChanger SampleChanger
	Harvester     Harvester
}

func newData() Data {
	return Data{
		Motors:           make(map[string]Motor),
		Shapes:           make(map[string]any),
		HardwareObjects:  make(map[string]map[string]any),
		EnergyScans:      make(map[string]EnergyScan),
		Actions:          make(map[string]ActionState),
		Plots:            make(map[string]Plot),
		QueueTasks:       make(map[string]map[string]any),
		Tasks:            make(map[string]TaskRecord),
		LimsData:         make(map[string]any),
		Display:          make(map[string]DisplayEntry),
		SampleAttributes: make(map[string]map[string]any),
	}
}

func (d *Data) clone() Data {
	c := *d
	c.Observers = slices.Clone(d.Observers)
	c.Motors = maps.Clone(d.Motors)
	c.Shapes = maps.Clone(d.Shapes)
	c.PixelsPerMm = slices.Clone(d.PixelsPerMm)
	c.HardwareObjects = maps.Clone(d.HardwareObjects)
	c.EnergyScans = maps.Clone(d.EnergyScans)
	c.Actions = maps.Clone(d.Actions)
	c.Plots = maps.Clone(d.Plots)
	c.QueueTasks = maps.Clone(d.QueueTasks)
	c.Tasks = maps.Clone(d.Tasks)
	c.LimsData = maps.Clone(d.LimsData)
	c.Display = maps.Clone(d.Display)
	c.SampleAttributes = maps.Clone(d.SampleAttributes)
	c.DiffractionPlans = slices.Clone(d.DiffractionPlans)
	c.Logs = slices.Clone(d.Logs)
	c.UserMessages = slices.Clone(d.UserMessages)
	c.Chat = slices.Clone(d.Chat)
	if d.WaitDialog != nil {
		w := *d.WaitDialog
		c.WaitDialog = &w
	}
	return c
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = slices.Clone(s[len(s)-limit:])
	}
	return s
}

// collectQueueIDs walks an arbitrary queue document and returns every
// value stored under a "queueID" key.
func collectQueueIDs(v any, out []string) []string {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			if k == "queueID" {
				if id := idString(child); id != "" {
					out = append(out, id)
				}
				continue
			}
			out = collectQueueIDs(child, out)
		}
	case []any:
		for _, child := range x {
			out = collectQueueIDs(child, out)
		}
	case []map[string]any:
		for _, child := range x {
			out = collectQueueIDs(child, out)
		}
	}
	return out
}
