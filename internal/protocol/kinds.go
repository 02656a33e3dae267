// Package protocol defines the closed set of events the server pushes on
// the hardware and logging channels, and decodes raw frames into them.
package protocol

// Channel names one of the two independently connected event streams.
type Channel string

const (
	Hardware Channel = "hwr"
	Logging  Channel = "logging"
)

// Channels lists every channel in connection order.
var Channels = []Channel{Hardware, Logging}

// Kind identifies an event by its wire name.
type Kind string

const (
	KindLogRecord Kind = "log_record"

	KindChatMessage                  Kind = "ra_chat_message"
	KindMotorPosition                Kind = "motor_position"
	KindMotorState                   Kind = "motor_state"
	KindUpdateShapes                 Kind = "update_shapes"
	KindUpdatePixelsPerMm            Kind = "update_pixels_per_mm"
	KindBeamChanged                  Kind = "beam_changed"
	KindHardwareObjectChanged        Kind = "hardware_object_changed"
	KindHardwareObjectAttribute      Kind = "hardware_object_attribute_changed"
	KindHardwareObjectValue          Kind = "hardware_object_value_changed"
	KindGridResultAvailable          Kind = "grid_result_available"
	KindEnergyScanResult             Kind = "energy_scan_result"
	KindUpdateTaskLimsData           Kind = "update_task_lims_data"
	KindTask                         Kind = "task"
	KindAddTask                      Kind = "add_task"
	KindAddDiffPlan                  Kind = "add_diff_plan"
	KindQueue                        Kind = "queue"
	KindSampleChanger                Kind = "sc"
	KindSampleCentring               Kind = "sample_centring"
	KindResumeQueueDialog            Kind = "resumeQueueDialog"
	KindUserChanged                  Kind = "userChanged"
	KindObserversChanged             Kind = "observersChanged"
	KindObserverLogout               Kind = "observerLogout"
	KindObserverLogin                Kind = "observerLogin"
	KindForceSignout                 Kind = "forceSignout"
	KindWorkflowParametersDialog     Kind = "workflowParametersDialog"
	KindGphlWorkflowParametersDialog Kind = "gphlWorkflowParametersDialog"
	KindGphlWorkflowUpdateDialog     Kind = "gphlWorkflowUpdateUiParametersDialog"
	KindTakeXtalSnapshot             Kind = "take_xtal_snapshot"
	KindBeamlineAction               Kind = "beamline_action"
	KindSampleChangerState           Kind = "sc_state"
	KindLoadedSampleChanged          Kind = "loaded_sample_changed"
	KindSetCurrentSample             Kind = "set_current_sample"
	KindSampleChangerMaintenance     Kind = "sc_maintenance_update"
	KindSampleChangerContents        Kind = "sc_contents_update"
	KindDiffPhaseChanged             Kind = "diff_phase_changed"
	KindNewPlot                      Kind = "new_plot"
	KindPlotData                     Kind = "plot_data"
	KindPlotEnd                      Kind = "plot_end"
	KindHarvesterState               Kind = "harvester_state"
	KindHarvesterContents            Kind = "harvester_contents_update"
)

var registry = map[Channel]map[Kind]func() Event{
	Logging: {
		KindLogRecord: func() Event { return new(LogRecord) },
	},
	Hardware: {
		KindChatMessage:                  func() Event { return new(ChatMessage) },
		KindMotorPosition:                func() Event { return new(MotorPosition) },
		KindMotorState:                   func() Event { return new(MotorState) },
		KindUpdateShapes:                 func() Event { return new(UpdateShapes) },
		KindUpdatePixelsPerMm:            func() Event { return new(UpdatePixelsPerMm) },
		KindBeamChanged:                  func() Event { return new(BeamChanged) },
		KindHardwareObjectChanged:        func() Event { return new(HardwareObjectChanged) },
		KindHardwareObjectAttribute:      func() Event { return new(HardwareObjectAttributeChanged) },
		KindHardwareObjectValue:          func() Event { return new(HardwareObjectValueChanged) },
		KindGridResultAvailable:          func() Event { return new(GridResultAvailable) },
		KindEnergyScanResult:             func() Event { return new(EnergyScanResult) },
		KindUpdateTaskLimsData:           func() Event { return new(UpdateTaskLimsData) },
		KindTask:                         func() Event { return new(Task) },
		KindAddTask:                      func() Event { return new(AddTask) },
		KindAddDiffPlan:                  func() Event { return new(AddDiffPlan) },
		KindQueue:                        func() Event { return new(Queue) },
		KindSampleChanger:                func() Event { return new(SampleChanger) },
		KindSampleCentring:               func() Event { return new(SampleCentring) },
		KindResumeQueueDialog:            func() Event { return new(ResumeQueueDialog) },
		KindUserChanged:                  func() Event { return new(UserChanged) },
		KindObserversChanged:             func() Event { return new(ObserversChanged) },
		KindObserverLogout:               func() Event { return new(ObserverLogout) },
		KindObserverLogin:                func() Event { return new(ObserverLogin) },
		KindForceSignout:                 func() Event { return new(ForceSignout) },
		KindWorkflowParametersDialog:     func() Event { return new(WorkflowParametersDialog) },
		KindGphlWorkflowParametersDialog: func() Event { return new(GphlWorkflowParametersDialog) },
		KindGphlWorkflowUpdateDialog:     func() Event { return new(GphlWorkflowUpdateDialog) },
		KindTakeXtalSnapshot:             func() Event { return new(TakeXtalSnapshot) },
		KindBeamlineAction:               func() Event { return new(BeamlineAction) },
		KindSampleChangerState:           func() Event { return new(SampleChangerState) },
		KindLoadedSampleChanged:          func() Event { return new(LoadedSampleChanged) },
		KindSetCurrentSample:             func() Event { return new(SetCurrentSample) },
		KindSampleChangerMaintenance:     func() Event { return new(SampleChangerMaintenance) },
		KindSampleChangerContents:        func() Event { return new(SampleChangerContentsUpdate) },
		KindDiffPhaseChanged:             func() Event { return new(DiffPhaseChanged) },
		KindNewPlot:                      func() Event { return new(NewPlot) },
		KindPlotData:                     func() Event { return new(PlotData) },
		KindPlotEnd:                      func() Event { return new(PlotEnd) },
		KindHarvesterState:               func() Event { return new(HarvesterState) },
		KindHarvesterContents:            func() Event { return new(HarvesterContentsUpdate) },
	},
}

// Kinds returns every event kind declared for ch, in no particular order.
func Kinds(ch Channel) []Kind {
	kinds := make([]Kind, 0, len(registry[ch]))
	for k := range registry[ch] {
		kinds = append(kinds, k)
	}
	return kinds
}

// Declared reports whether kind is part of ch's vocabulary.
func Declared(ch Channel, kind Kind) bool {
	_, ok := registry[ch][kind]
	return ok
}
