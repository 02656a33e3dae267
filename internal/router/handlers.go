package router

import (
	"context"
	"fmt"

	"github.com/beamline-remote/hwr-client/internal/control"
	"github.com/beamline-remote/hwr-client/internal/operation"
	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/queuegui"
	"github.com/beamline-remote/hwr-client/internal/state"
)

const (
	clickCentringOverlay = "3-Click Centring: <br /> Select centered position or center"
	autoCentringOverlay  = "Auto loop centring: <br /> Save position or re-center"
)

func (r *Router) register() {
	const hwr, logging = protocol.Hardware, protocol.Logging

	on(r, logging, protocol.KindLogRecord, r.logRecord)

	on(r, hwr, protocol.KindChatMessage, r.chatMessage)
	on(r, hwr, protocol.KindMotorPosition, func(_ context.Context, e *protocol.MotorPosition) Result {
		return mutate(state.SaveMotorPosition{Name: e.Name, Position: e.Position})
	})
	on(r, hwr, protocol.KindMotorState, func(_ context.Context, e *protocol.MotorState) Result {
		return mutate(state.UpdateMotorState{Name: e.Name, State: e.State})
	})
	on(r, hwr, protocol.KindUpdateShapes, func(_ context.Context, e *protocol.UpdateShapes) Result {
		return mutate(state.SetShapes{Shapes: e.Shapes})
	})
	on(r, hwr, protocol.KindUpdatePixelsPerMm, func(_ context.Context, e *protocol.UpdatePixelsPerMm) Result {
		return mutate(state.SetPixelsPerMm{Value: e.PixelsPerMm})
	})
	on(r, hwr, protocol.KindBeamChanged, func(_ context.Context, e *protocol.BeamChanged) Result {
		return mutate(state.SetBeamInfo{Info: e.Data})
	})
	on(r, hwr, protocol.KindHardwareObjectChanged, func(_ context.Context, e *protocol.HardwareObjectChanged) Result {
		return mutate(state.UpdateHardwareObject{Object: e.Data})
	})
	on(r, hwr, protocol.KindHardwareObjectAttribute, func(_ context.Context, e *protocol.HardwareObjectAttributeChanged) Result {
		return mutate(state.UpdateHardwareObjectAttribute{Update: e.Data})
	})
	on(r, hwr, protocol.KindHardwareObjectValue, func(_ context.Context, e *protocol.HardwareObjectValueChanged) Result {
		return mutate(state.UpdateHardwareObjectValue{Update: e.Data})
	})
	on(r, hwr, protocol.KindGridResultAvailable, func(_ context.Context, e *protocol.GridResultAvailable) Result {
		return mutate(state.UpdateShapes{Shapes: []map[string]any{e.Shape}})
	})
	on(r, hwr, protocol.KindEnergyScanResult, func(_ context.Context, e *protocol.EnergyScanResult) Result {
		return mutate(state.SetEnergyScanResult{PlanID: string(e.PK), IP: e.IP, RM: e.RM})
	})

	// queue
	on(r, hwr, protocol.KindUpdateTaskLimsData, func(_ context.Context, e *protocol.UpdateTaskLimsData) Result {
		return mutate(state.UpdateTaskLimsData{Sample: e.Sample, TaskIndex: e.TaskIndex, LimsResultData: e.LimsResultData})
	})
	on(r, hwr, protocol.KindTask, r.task)
	on(r, hwr, protocol.KindAddTask, func(_ context.Context, e *protocol.AddTask) Result {
		return mutate(state.AddTasks{Tasks: e.Tasks})
	})
	on(r, hwr, protocol.KindAddDiffPlan, func(_ context.Context, e *protocol.AddDiffPlan) Result {
		return mutate(state.AddDiffractionPlan{Tasks: e.Tasks})
	})
	on(r, hwr, protocol.KindQueue, r.queue)
	on(r, hwr, protocol.KindResumeQueueDialog, func(context.Context, *protocol.ResumeQueueDialog) Result {
		return mutate(state.ShowResumeQueueDialog{Show: true})
	})
	on(r, hwr, protocol.KindSetCurrentSample, func(_ context.Context, e *protocol.SetCurrentSample) Result {
		return mutate(state.SetCurrentSample{SampleID: e.SampleID})
	})

	// sample view
	on(r, hwr, protocol.KindSampleCentring, r.sampleCentring)
	on(r, hwr, protocol.KindDiffPhaseChanged, func(_ context.Context, e *protocol.DiffPhaseChanged) Result {
		return mutate(state.SetCurrentPhase{Phase: e.Phase})
	})
	on(r, hwr, protocol.KindTakeXtalSnapshot, r.takeSnapshot)

	// remote access
	on(r, hwr, protocol.KindUserChanged, r.userChanged)
	on(r, hwr, protocol.KindObserversChanged, func(context.Context, *protocol.ObserversChanged) Result {
		return effect(state.FetchRemoteAccess)
	})
	on(r, hwr, protocol.KindObserverLogout, func(_ context.Context, e *protocol.ObserverLogout) Result {
		return mutate(state.AddChatMessage{Text: fmt.Sprintf("**%s** (%s) disconnected.", e.Nickname, e.IP)})
	})
	on(r, hwr, protocol.KindObserverLogin, func(_ context.Context, e *protocol.ObserverLogin) Result {
		if e.Nickname != "" && e.IP != "" {
			return mutate(state.AddChatMessage{Text: fmt.Sprintf("**%s** (%s) connected.", e.Nickname, e.IP)})
		}
		return mutate(state.AddChatMessage{Text: e.Nickname + " connecting ..."})
	})
	on(r, hwr, protocol.KindForceSignout, func(context.Context, *protocol.ForceSignout) Result {
		return effect(state.SignOut)
	})

	// workflows
	on(r, hwr, protocol.KindWorkflowParametersDialog, func(_ context.Context, e *protocol.WorkflowParametersDialog) Result {
		return mutate(operation.WorkflowParameters(e.Data))
	})
	on(r, hwr, protocol.KindGphlWorkflowParametersDialog, func(_ context.Context, e *protocol.GphlWorkflowParametersDialog) Result {
		return mutate(operation.GphlParameters(e.Data))
	})
	on(r, hwr, protocol.KindGphlWorkflowUpdateDialog, func(_ context.Context, e *protocol.GphlWorkflowUpdateDialog) Result {
		return mutate(operation.GphlUpdate(e.Data))
	})

	// beamline actions and plots
	on(r, hwr, protocol.KindBeamlineAction, func(_ context.Context, e *protocol.BeamlineAction) Result {
		return mutate(state.SetActionState{Name: e.Name, State: e.State, Data: e.Data})
	})
	on(r, hwr, protocol.KindNewPlot, func(_ context.Context, e *protocol.NewPlot) Result {
		return mutate(state.NewPlot{Info: e.Info})
	})
	on(r, hwr, protocol.KindPlotData, func(_ context.Context, e *protocol.PlotData) Result {
		return mutate(state.PlotData{ID: string(e.ID), Data: e.Data})
	})
	on(r, hwr, protocol.KindPlotEnd, func(_ context.Context, e *protocol.PlotEnd) Result {
		return mutate(
			state.PlotData{ID: string(e.ID), Data: e.Data, Final: true},
			state.PlotEnd{Info: e.Info},
		)
	})

	// sample changer and harvester
	on(r, hwr, protocol.KindSampleChanger, func(_ context.Context, e *protocol.SampleChanger) Result {
		if m := operation.SampleChanger(operation.Signal(e.Signal), e.Message, e.Location); m != nil {
			return mutate(m)
		}
		return Result{}
	})
	on(r, hwr, protocol.KindSampleChangerState, func(_ context.Context, e *protocol.SampleChangerState) Result {
		return mutate(state.SetSampleChangerState{State: e.State})
	})
	on(r, hwr, protocol.KindLoadedSampleChanged, func(_ context.Context, e *protocol.LoadedSampleChanged) Result {
		return mutate(state.SetLoadedSample{Sample: e.Data})
	})
	on(r, hwr, protocol.KindSampleChangerMaintenance, func(_ context.Context, e *protocol.SampleChangerMaintenance) Result {
		return mutate(state.SetSampleChangerGlobalState{State: e.Data})
	})
	on(r, hwr, protocol.KindSampleChangerContents, func(context.Context, *protocol.SampleChangerContentsUpdate) Result {
		return effect(state.FetchSampleChangerContents)
	})
	on(r, hwr, protocol.KindHarvesterState, func(_ context.Context, e *protocol.HarvesterState) Result {
		return mutate(state.SetHarvesterState{State: e.State})
	})
	on(r, hwr, protocol.KindHarvesterContents, func(context.Context, *protocol.HarvesterContentsUpdate) Result {
		return effect(state.FetchHarvesterContents)
	})
}

func (r *Router) logRecord(_ context.Context, e *protocol.LogRecord) Result {
	entry := state.LogEntry{Severity: e.Severity, Fields: e.Fields}
	var res Result
	if e.Severity != "DEBUG" {
		res.Mutations = append(res.Mutations, state.AddUserMessage{Record: entry})
	}
	res.Mutations = append(res.Mutations, state.AddLogRecord{Record: entry})
	return res
}

// chatMessage shows messages from other users that have not been read
// elsewhere.
func (r *Router) chatMessage(_ context.Context, e *protocol.ChatMessage) Result {
	if e.Username == r.view.User().Username || e.Read {
		return Result{}
	}
	return mutate(
		state.AddChatMessage{Text: fmt.Sprintf("%s **%s:** \n\n %s", e.Date, e.Nickname, e.Message)},
		state.IncChatMessageCount{},
	)
}

func (r *Router) task(_ context.Context, e *protocol.Task) Result {
	rec := state.TaskRecord{
		Sample:         e.Sample,
		TaskIndex:      e.TaskIndex.Value,
		State:          e.State,
		Progress:       e.Progress,
		LimsResultData: e.LimsResultData,
		QueueID:        string(e.QueueID),
	}
	return mutate(queuegui.TaskUpdate(r.view, rec, !e.TaskIndex.Null)...)
}

func (r *Router) queue(_ context.Context, e *protocol.Queue) Result {
	switch e.Signal {
	case protocol.QueueSignalDisableSample:
		return mutate(state.SetSampleAttribute{SampleIDs: []string{e.SampleID}, Attribute: "checked", Value: false})
	case protocol.QueueSignalUpdate:
		switch e.Message {
		case protocol.QueueUpdateAll:
			return effect(state.FetchQueue)
		case protocol.QueueUpdateObservers:
			if !r.view.User().InControl {
				return effect(state.FetchQueue)
			}
		}
		return Result{}
	}
	return mutate(state.SetQueueStatus{Status: e.Signal})
}

func (r *Router) sampleCentring(_ context.Context, e *protocol.SampleCentring) Result {
	if e.Method == protocol.CentringClick {
		return mutate(
			state.StartClickCentring{},
			state.VideoMessageOverlay{Show: true, Message: clickCentringOverlay},
		)
	}
	return mutate(state.VideoMessageOverlay{Show: true, Message: autoCentringOverlay})
}

// userChanged blocks on the login refresh so the advisory is decided
// against the server's view, not a stale local one.
func (r *Router) userChanged(ctx context.Context, e *protocol.UserChanged) Result {
	before := r.view.User()
	ctx, cancel := context.WithTimeout(ctx, r.loginTimeout)
	defer cancel()
	info, err := r.login.LoginInfo(ctx)
	if err != nil {
		r.logger.Warn("login refresh failed", "event", string(e.Kind()), "error", err)
		return Result{}
	}

	t := control.NewTransition(before, info.User, r.view.Observers())
	advisory := control.Decide(t)
	res := mutate(state.SetLoginInfo{Info: info})
	if req, ok := advisory.Dialog(e.Message); ok {
		res.Mutations = append(res.Mutations, state.ShowWaitDialog{Request: req})
	}
	r.logger.Info("control changed", "advisory", advisory.String(), "in_control", info.User.InControl)
	return res
}

func (r *Router) takeSnapshot(ctx context.Context, _ *protocol.TakeXtalSnapshot) Result {
	img, err := r.camera.Capture(ctx)
	if err != nil {
		r.logger.Warn("snapshot failed", "error", err)
		return Result{}
	}
	return Result{Reply: img}
}
