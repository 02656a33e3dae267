// Package operation maps long-running operation phases reported by the
// server to wait-dialog and parameter-dialog changes.
package operation

import "github.com/beamline-remote/hwr-client/internal/state"

// Signal is a sample-changer operation phase.
type Signal string

const (
	OperatingSampleChanger Signal = "operatingSampleChanger"
	LoadingSample          Signal = "loadingSample"
	LoadedSample           Signal = "loadedSample"
	UnloadingSample        Signal = "unLoadingSample"
	UnloadedSample         Signal = "unLoadedSample"
	LoadReady              Signal = "loadReady"
	InSafeArea             Signal = "inSafeArea"
)

// SampleChanger returns the wait-dialog change for a phase signal, or nil
// for signals outside the known set. Busy phases replace the dialog with
// one whose cancel action stops the queue; idle phases clear it.
func SampleChanger(sig Signal, message, location string) state.Mutation {
	var title string
	switch sig {
	case OperatingSampleChanger:
		title = "Sample changer in operation"
	case LoadingSample, LoadedSample:
		title = "Loading sample " + location
	case UnloadingSample, UnloadedSample:
		title = "Unloading sample " + location
	case LoadReady, InSafeArea:
		return state.HideWaitDialog{}
	default:
		return nil
	}
	return state.ShowWaitDialog{Request: state.WaitDialogRequest{
		Title:        title,
		Message:      message,
		Cancellable:  true,
		CancelAction: state.StopQueue,
	}}
}
