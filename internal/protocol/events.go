package protocol

import "fmt"

// Event is a decoded server push. The set of implementations is closed:
// only this package declares events.
type Event interface {
	Kind() Kind
	isEvent()
}

type sealed struct{}

func (sealed) isEvent() {}

// opaque events take the whole payload as a generic value instead of
// decoding into fields.
type opaque interface {
	setPayload(v any)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// --- logging channel ---

// LogRecord is a server log line. Fields other than severity are kept
// verbatim for the log view.
type LogRecord struct {
	sealed
	Severity string
	Fields   map[string]any
}

func (LogRecord) Kind() Kind { return KindLogRecord }

func (e *LogRecord) setPayload(v any) {
	e.Fields = asMap(v)
	e.Severity = asString(e.Fields["severity"])
}

// --- hardware channel ---

type ChatMessage struct {
	sealed
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Date     string `json:"date"`
	Message  string `json:"message"`
	Read     bool   `json:"read"`
}

func (ChatMessage) Kind() Kind { return KindChatMessage }

type MotorPosition struct {
	sealed
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

func (MotorPosition) Kind() Kind { return KindMotorPosition }

type MotorState struct {
	sealed
	Name  string `json:"name"`
	State string `json:"state"`
}

func (MotorState) Kind() Kind { return KindMotorState }

// UpdateShapes carries the complete shape set keyed by shape id.
type UpdateShapes struct {
	sealed
	Shapes map[string]any `json:"shapes"`
}

func (UpdateShapes) Kind() Kind { return KindUpdateShapes }

type UpdatePixelsPerMm struct {
	sealed
	PixelsPerMm []float64 `json:"pixelsPerMm"`
}

func (UpdatePixelsPerMm) Kind() Kind { return KindUpdatePixelsPerMm }

type BeamChanged struct {
	sealed
	Data map[string]any `json:"data"`
}

func (BeamChanged) Kind() Kind { return KindBeamChanged }

// HardwareObjectChanged carries a full hardware object description.
type HardwareObjectChanged struct {
	sealed
	Data map[string]any
}

func (HardwareObjectChanged) Kind() Kind { return KindHardwareObjectChanged }

func (e *HardwareObjectChanged) setPayload(v any) { e.Data = asMap(v) }

// HardwareObjectAttributeChanged carries {name, attribute, value}.
type HardwareObjectAttributeChanged struct {
	sealed
	Data map[string]any
}

func (HardwareObjectAttributeChanged) Kind() Kind { return KindHardwareObjectAttribute }

func (e *HardwareObjectAttributeChanged) setPayload(v any) { e.Data = asMap(v) }

// HardwareObjectValueChanged carries {name, value}.
type HardwareObjectValueChanged struct {
	sealed
	Data map[string]any
}

func (HardwareObjectValueChanged) Kind() Kind { return KindHardwareObjectValue }

func (e *HardwareObjectValueChanged) setPayload(v any) { e.Data = asMap(v) }

type GridResultAvailable struct {
	sealed
	Shape map[string]any `json:"shape"`
}

func (GridResultAvailable) Kind() Kind { return KindGridResultAvailable }

// EnergyScanResult reports the inflection point and remote energy of a
// finished scan, keyed by the plan id.
type EnergyScanResult struct {
	sealed
	PK NodeID `json:"pk"`
	IP any    `json:"ip"`
	RM any    `json:"rm"`
}

func (EnergyScanResult) Kind() Kind { return KindEnergyScanResult }

type UpdateTaskLimsData struct {
	sealed
	Sample         string `json:"sample"`
	TaskIndex      int    `json:"taskIndex"`
	LimsResultData any    `json:"limsResultData"`
}

func (UpdateTaskLimsData) Kind() Kind { return KindUpdateTaskLimsData }

// Task reports progress of a queue entry. Groups and samples report
// with a null TaskIndex.
type Task struct {
	sealed
	Sample         string    `json:"sample"`
	TaskIndex      TaskIndex `json:"taskIndex"`
	State          int       `json:"state"`
	Progress       float64   `json:"progress"`
	LimsResultData any       `json:"limsResultData"`
	QueueID        NodeID    `json:"queueID"`
}

func (Task) Kind() Kind { return KindTask }

type AddTask struct {
	sealed
	Tasks []map[string]any `json:"tasks"`
}

func (AddTask) Kind() Kind { return KindAddTask }

type AddDiffPlan struct {
	sealed
	Tasks []map[string]any `json:"tasks"`
}

func (AddDiffPlan) Kind() Kind { return KindAddDiffPlan }

// Queue signal values with special handling.
const (
	QueueSignalDisableSample = "DisableSample"
	QueueSignalUpdate        = "update"

	QueueUpdateAll       = "all"
	QueueUpdateObservers = "observers"
)

type Queue struct {
	sealed
	Signal   string `json:"Signal"`
	Message  string `json:"message"`
	SampleID string `json:"sampleID"`
}

func (Queue) Kind() Kind { return KindQueue }

// SampleChanger is a sample-changer operation phase signal.
type SampleChanger struct {
	sealed
	Signal   string `json:"signal"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

func (SampleChanger) Kind() Kind { return KindSampleChanger }

// CentringClick is the sample_centring method for manual 3-click centring.
const CentringClick = "click"

type SampleCentring struct {
	sealed
	Method string `json:"method"`
}

func (SampleCentring) Kind() Kind { return KindSampleCentring }

type ResumeQueueDialog struct{ sealed }

func (ResumeQueueDialog) Kind() Kind { return KindResumeQueueDialog }

// UserChanged is pushed whenever any session's control status changes.
// The server sends the message either bare or as {message}.
type UserChanged struct {
	sealed
	Message string
}

func (UserChanged) Kind() Kind { return KindUserChanged }

func (e *UserChanged) setPayload(v any) {
	if m := asMap(v); m != nil {
		e.Message = asString(m["message"])
		return
	}
	e.Message = asString(v)
}

type ObserversChanged struct{ sealed }

func (ObserversChanged) Kind() Kind { return KindObserversChanged }

type ObserverLogout struct {
	sealed
	Nickname string `json:"nickname"`
	IP       string `json:"ip"`
}

func (ObserverLogout) Kind() Kind { return KindObserverLogout }

type ObserverLogin struct {
	sealed
	Nickname string `json:"nickname"`
	IP       string `json:"ip"`
}

func (ObserverLogin) Kind() Kind { return KindObserverLogin }

type ForceSignout struct{ sealed }

func (ForceSignout) Kind() Kind { return KindForceSignout }

// WorkflowParametersDialog opens the dialog when Data is non-nil and
// closes it when the server sends null.
type WorkflowParametersDialog struct {
	sealed
	Data map[string]any
}

func (WorkflowParametersDialog) Kind() Kind { return KindWorkflowParametersDialog }

func (e *WorkflowParametersDialog) setPayload(v any) { e.Data = asMap(v) }

type GphlWorkflowParametersDialog struct {
	sealed
	Data map[string]any
}

func (GphlWorkflowParametersDialog) Kind() Kind { return KindGphlWorkflowParametersDialog }

func (e *GphlWorkflowParametersDialog) setPayload(v any) { e.Data = asMap(v) }

type GphlWorkflowUpdateDialog struct {
	sealed
	Data map[string]any
}

func (GphlWorkflowUpdateDialog) Kind() Kind { return KindGphlWorkflowUpdateDialog }

func (e *GphlWorkflowUpdateDialog) setPayload(v any) { e.Data = asMap(v) }

// TakeXtalSnapshot asks the client for a crystal image; the answer
// travels in the acknowledgment.
type TakeXtalSnapshot struct{ sealed }

func (TakeXtalSnapshot) Kind() Kind { return KindTakeXtalSnapshot }

type BeamlineAction struct {
	sealed
	Name  string `json:"name"`
	State any    `json:"state"`
	Data  any    `json:"data"`
}

func (BeamlineAction) Kind() Kind { return KindBeamlineAction }

type SampleChangerState struct {
	sealed
	State any
}

func (SampleChangerState) Kind() Kind { return KindSampleChangerState }

func (e *SampleChangerState) setPayload(v any) { e.State = v }

type LoadedSampleChanged struct {
	sealed
	Data any
}

func (LoadedSampleChanged) Kind() Kind { return KindLoadedSampleChanged }

func (e *LoadedSampleChanged) setPayload(v any) { e.Data = v }

type SetCurrentSample struct {
	sealed
	SampleID string `json:"sampleID"`
}

func (SetCurrentSample) Kind() Kind { return KindSetCurrentSample }

type SampleChangerMaintenance struct {
	sealed
	Data any
}

func (SampleChangerMaintenance) Kind() Kind { return KindSampleChangerMaintenance }

func (e *SampleChangerMaintenance) setPayload(v any) { e.Data = v }

type SampleChangerContentsUpdate struct{ sealed }

func (SampleChangerContentsUpdate) Kind() Kind { return KindSampleChangerContents }

type DiffPhaseChanged struct {
	sealed
	Phase string `json:"phase"`
}

func (DiffPhaseChanged) Kind() Kind { return KindDiffPhaseChanged }

type NewPlot struct {
	sealed
	Info map[string]any
}

func (NewPlot) Kind() Kind { return KindNewPlot }

func (e *NewPlot) setPayload(v any) { e.Info = asMap(v) }

type PlotData struct {
	sealed
	ID   NodeID `json:"id"`
	Data any    `json:"data"`
}

func (PlotData) Kind() Kind { return KindPlotData }

// PlotEnd carries the final data points plus the full plot description.
type PlotEnd struct {
	sealed
	ID   NodeID
	Data any
	Info map[string]any
}

func (PlotEnd) Kind() Kind { return KindPlotEnd }

func (e *PlotEnd) setPayload(v any) {
	e.Info = asMap(v)
	e.ID = NodeID(asString(e.Info["id"]))
	e.Data = e.Info["data"]
}

type HarvesterState struct {
	sealed
	State any
}

func (HarvesterState) Kind() Kind { return KindHarvesterState }

func (e *HarvesterState) setPayload(v any) { e.State = v }

type HarvesterContentsUpdate struct{ sealed }

func (HarvesterContentsUpdate) Kind() Kind { return KindHarvesterContents }
