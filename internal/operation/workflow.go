package operation

import "github.com/beamline-remote/hwr-client/internal/state"

// WorkflowParameters opens the parameter dialog with data, or shows an
// empty inactive dialog when data is absent.
func WorkflowParameters(data map[string]any) state.Mutation {
	if data == nil {
		return state.ShowWorkflowParametersDialog{Dialog: state.ParametersDialog{}}
	}
	return state.ShowWorkflowParametersDialog{Dialog: state.ParametersDialog{Data: data, Show: true}}
}

func GphlParameters(data map[string]any) state.Mutation {
	return state.ShowGphlWorkflowParametersDialog{Data: data}
}

// GphlUpdate changes fields of the GPhL dialog without opening or
// closing it.
func GphlUpdate(data map[string]any) state.Mutation {
	return state.UpdateGphlWorkflowParametersDialog{Data: data}
}
