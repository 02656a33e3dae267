package state

import (
	"fmt"
	"maps"
	"strconv"
)

// Mutation is one typed change to Data.
type Mutation interface {
	apply(d *Data)
}

func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func limsKey(sample string, taskIndex int) string {
	return sample + "/" + strconv.Itoa(taskIndex)
}

// --- session ---

type SetLoginInfo struct{ Info LoginInfo }

func (m SetLoginInfo) apply(d *Data) { d.Login = m.Info }

type SetRemoteAccess struct{ State RemoteAccess }

func (m SetRemoteAccess) apply(d *Data) { d.Observers = m.State.Observers }

// SignedOut forgets the login and observer list.
type SignedOut struct{}

func (SignedOut) apply(d *Data) {
	d.Login = LoginInfo{}
	d.Observers = nil
}

type ShowConnectionLost struct{ Show bool }

func (m ShowConnectionLost) apply(d *Data) { d.ConnectionLost = m.Show }

// --- log and chat ---

type AddLogRecord struct{ Record LogEntry }

func (m AddLogRecord) apply(d *Data) { d.Logs = appendCapped(d.Logs, m.Record, maxLogEntries) }

type AddUserMessage struct{ Record LogEntry }

func (m AddUserMessage) apply(d *Data) {
	d.UserMessages = appendCapped(d.UserMessages, m.Record, maxUserMessages)
}

// AddChatMessage appends a markdown line to the chat pane.
type AddChatMessage struct{ Text string }

func (m AddChatMessage) apply(d *Data) { d.Chat = appendCapped(d.Chat, m.Text, maxChatLines) }

type IncChatMessageCount struct{}

func (IncChatMessageCount) apply(d *Data) { d.UnreadChat++ }

// --- sample view ---

type SaveMotorPosition struct {
	Name     string
	Position float64
}

func (m SaveMotorPosition) apply(d *Data) {
	motor := d.Motors[m.Name]
	motor.Position = m.Position
	d.Motors[m.Name] = motor
}

type UpdateMotorState struct {
	Name  string
	State string
}

func (m UpdateMotorState) apply(d *Data) {
	motor := d.Motors[m.Name]
	motor.State = m.State
	d.Motors[m.Name] = motor
}

// SetShapes replaces the whole shape set.
type SetShapes struct{ Shapes map[string]any }

func (m SetShapes) apply(d *Data) {
	d.Shapes = maps.Clone(m.Shapes)
	if d.Shapes == nil {
		d.Shapes = make(map[string]any)
	}
}

// UpdateShapes merges shapes by their "id" field.
type UpdateShapes struct{ Shapes []map[string]any }

func (m UpdateShapes) apply(d *Data) {
	for _, shape := range m.Shapes {
		id := idString(shape["id"])
		if id == "" {
			continue
		}
		d.Shapes[id] = shape
	}
}

type SetPixelsPerMm struct{ Value []float64 }

func (m SetPixelsPerMm) apply(d *Data) { d.PixelsPerMm = m.Value }

type SetBeamInfo struct{ Info map[string]any }

func (m SetBeamInfo) apply(d *Data) { d.Beam = m.Info }

type StartClickCentring struct{}

func (StartClickCentring) apply(d *Data) { d.ClickCentring = true }

type VideoMessageOverlay struct {
	Show    bool
	Message string
}

func (m VideoMessageOverlay) apply(d *Data) {
	d.VideoOverlay = Overlay{Show: m.Show, Message: m.Message}
}

type SetCurrentPhase struct{ Phase string }

func (m SetCurrentPhase) apply(d *Data) { d.Phase = m.Phase }

// --- beamline ---

// UpdateHardwareObject replaces a hardware object by its "name".
type UpdateHardwareObject struct{ Object map[string]any }

func (m UpdateHardwareObject) apply(d *Data) {
	name := idString(m.Object["name"])
	if name == "" {
		return
	}
	d.HardwareObjects[name] = maps.Clone(m.Object)
}

// UpdateHardwareObjectAttribute sets one attribute of a named object
// from a {name, attribute, value} payload.
type UpdateHardwareObjectAttribute struct{ Update map[string]any }

func (m UpdateHardwareObjectAttribute) apply(d *Data) {
	name := idString(m.Update["name"])
	attr := idString(m.Update["attribute"])
	if name == "" || attr == "" {
		return
	}
	obj := maps.Clone(d.HardwareObjects[name])
	if obj == nil {
		obj = map[string]any{"name": name}
	}
	obj[attr] = m.Update["value"]
	d.HardwareObjects[name] = obj
}

// UpdateHardwareObjectValue sets the "value" of a named object.
type UpdateHardwareObjectValue struct{ Update map[string]any }

func (m UpdateHardwareObjectValue) apply(d *Data) {
	name := idString(m.Update["name"])
	if name == "" {
		return
	}
	obj := maps.Clone(d.HardwareObjects[name])
	if obj == nil {
		obj = map[string]any{"name": name}
	}
	obj["value"] = m.Update["value"]
	d.HardwareObjects[name] = obj
}

type SetActionState struct {
	Name  string
	State any
	Data  any
}

func (m SetActionState) apply(d *Data) {
	d.Actions[m.Name] = ActionState{State: m.State, Data: m.Data}
}

type NewPlot struct{ Info map[string]any }

func (m NewPlot) apply(d *Data) {
	id := idString(m.Info["id"])
	d.Plots[id] = Plot{ID: id, Info: m.Info}
}

// PlotData replaces the points of a plot; Final marks the last batch.
type PlotData struct {
	ID    string
	Data  any
	Final bool
}

func (m PlotData) apply(d *Data) {
	p := d.Plots[m.ID]
	p.ID = m.ID
	p.Data = m.Data
	if m.Final {
		p.Finished = true
	}
	d.Plots[m.ID] = p
}

type PlotEnd struct{ Info map[string]any }

func (m PlotEnd) apply(d *Data) {
	id := idString(m.Info["id"])
	p := d.Plots[id]
	p.ID = id
	p.Finished = true
	if p.Info == nil {
		p.Info = m.Info
	}
	d.Plots[id] = p
}

// --- task results ---

type SetEnergyScanResult struct {
	PlanID string
	IP     any
	RM     any
}

func (m SetEnergyScanResult) apply(d *Data) {
	d.EnergyScans[m.PlanID] = EnergyScan{IP: m.IP, RM: m.RM}
}

// --- queue ---

// SetQueue replaces the queue document and makes sure every node in it
// has a display entry.
type SetQueue struct{ Queue map[string]any }

func (m SetQueue) apply(d *Data) {
	d.Queue = m.Queue
	for _, id := range collectQueueIDs(m.Queue, nil) {
		if _, ok := d.Display[id]; !ok {
			d.Display[id] = DisplayEntry{QueueID: id}
		}
	}
}

type SetQueueStatus struct{ Status string }

func (m SetQueueStatus) apply(d *Data) { d.QueueStatus = m.Status }

// AddTasks records newly queued tasks and gives each a display entry.
type AddTasks struct{ Tasks []map[string]any }

func (m AddTasks) apply(d *Data) {
	for _, task := range m.Tasks {
		id := idString(task["queueID"])
		if id == "" {
			continue
		}
		d.QueueTasks[id] = task
		if _, ok := d.Display[id]; !ok {
			d.Display[id] = DisplayEntry{QueueID: id}
		}
	}
}

type AddDiffractionPlan struct{ Tasks []map[string]any }

func (m AddDiffractionPlan) apply(d *Data) {
	d.DiffractionPlans = append(d.DiffractionPlans, m.Tasks...)
}

// AddTaskResult upserts the task record for its queue id.
type AddTaskResult struct{ Record TaskRecord }

func (m AddTaskResult) apply(d *Data) {
	rec := m.Record
	if rec.LimsResultData == nil {
		rec.LimsResultData = d.LimsData[limsKey(rec.Sample, rec.TaskIndex)]
	}
	d.Tasks[rec.QueueID] = rec
}

type UpdateTaskLimsData struct {
	Sample         string
	TaskIndex      int
	LimsResultData any
}

func (m UpdateTaskLimsData) apply(d *Data) {
	d.LimsData[limsKey(m.Sample, m.TaskIndex)] = m.LimsResultData
	for id, rec := range d.Tasks {
		if rec.Sample == m.Sample && rec.TaskIndex == m.TaskIndex {
			rec.LimsResultData = m.LimsResultData
			d.Tasks[id] = rec
		}
	}
}

// SetCollapsed sets a queue node's collapsed flag. It is an explicit
// set, so repeating it is harmless.
type SetCollapsed struct {
	QueueID   string
	Collapsed bool
}

func (m SetCollapsed) apply(d *Data) {
	d.Display[m.QueueID] = DisplayEntry{QueueID: m.QueueID, Collapsed: m.Collapsed}
}

type SetSampleAttribute struct {
	SampleIDs []string
	Attribute string
	Value     any
}

func (m SetSampleAttribute) apply(d *Data) {
	for _, id := range m.SampleIDs {
		attrs := maps.Clone(d.SampleAttributes[id])
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[m.Attribute] = m.Value
		d.SampleAttributes[id] = attrs
	}
}

type SetCurrentSample struct{ SampleID string }

func (m SetCurrentSample) apply(d *Data) { d.CurrentSample = m.SampleID }

type ShowResumeQueueDialog struct{ Show bool }

func (m ShowResumeQueueDialog) apply(d *Data) { d.ResumeQueueDialog = m.Show }

// --- dialogs ---

// ShowWaitDialog replaces the active wait dialog.
type ShowWaitDialog struct{ Request WaitDialogRequest }

func (m ShowWaitDialog) apply(d *Data) {
	req := m.Request
	d.WaitDialog = &req
}

type HideWaitDialog struct{}

func (HideWaitDialog) apply(d *Data) { d.WaitDialog = nil }

type ShowWorkflowParametersDialog struct{ Dialog ParametersDialog }

func (m ShowWorkflowParametersDialog) apply(d *Data) { d.WorkflowDialog = m.Dialog }

type ShowGphlWorkflowParametersDialog struct{ Data map[string]any }

func (m ShowGphlWorkflowParametersDialog) apply(d *Data) {
	d.GphlDialog = ParametersDialog{Data: m.Data, Show: true}
}

// UpdateGphlWorkflowParametersDialog merges fields into the open GPhL
// dialog without opening or closing it.
type UpdateGphlWorkflowParametersDialog struct{ Data map[string]any }

func (m UpdateGphlWorkflowParametersDialog) apply(d *Data) {
	merged := maps.Clone(d.GphlDialog.Data)
	if merged == nil {
		merged = make(map[string]any)
	}
	maps.Copy(merged, m.Data)
	d.GphlDialog.Data = merged
}

// --- sample changer and harvester ---

type SetSampleChangerState struct{ State any }

func (m SetSampleChangerState) apply(d *Data) { d.SampleChanger.State = m.State }

type SetLoadedSample struct{ Sample any }

func (m SetLoadedSample) apply(d *Data) { d.SampleChanger.Loaded = m.Sample }

type SetSampleChangerGlobalState struct{ State any }

func (m SetSampleChangerGlobalState) apply(d *Data) { d.SampleChanger.Global = m.State }

type SetSampleChangerContents struct{ Contents map[string]any }

func (m SetSampleChangerContents) apply(d *Data) { d.SampleChanger.Contents = m.Contents }

type SetHarvesterState struct{ State any }

func (m SetHarvesterState) apply(d *Data) { d.Harvester.State = m.State }

type SetHarvesterContents struct{ Contents map[string]any }

func (m SetHarvesterContents) apply(d *Data) { d.Harvester.Contents = m.Contents }
