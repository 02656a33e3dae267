// Package state is the boundary between the session core and the
// application state it maintains. The core reads a small View and pushes
// typed Mutations; Store is the in-process implementation.
package state

// User is the local session's identity and control flags as last
// reported by the server.
type User struct {
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	InControl       bool   `json:"inControl"`
	RequestsControl bool   `json:"requestsControl"`
	IsStaff         bool   `json:"isstaff"`
}

type LoginInfo struct {
	LoggedIn bool `json:"loggedIn"`
	User     User `json:"user"`
}

// Observer is another connected session that does not hold control.
type Observer struct {
	Nickname        string `json:"nickname"`
	IP              string `json:"ip"`
	RequestsControl bool   `json:"requestsControl"`
	Read            bool   `json:"read"`
}

type RemoteAccess struct {
	Observers []Observer `json:"observers"`
}

// TaskRecord is the latest progress report for one queue entry. State 1
// means running; 2 and above are terminal.
type TaskRecord struct {
	Sample         string
	TaskIndex      int
	State          int
	Progress       float64
	LimsResultData any
	QueueID        string
}

const (
	TaskRunning = 1
	TaskDone    = 2
)

// DisplayEntry is the queue tree's presentation state for one node.
type DisplayEntry struct {
	QueueID   string
	Collapsed bool
}

// WaitDialogRequest describes the single modal advisory shown while a
// remote operation runs. CancelAction is performed when the user
// cancels a cancellable dialog.
type WaitDialogRequest struct {
	Title        string
	Message      string
	Cancellable  bool
	CancelAction Effect
}

type Motor struct {
	Position float64
	State    string
}

type LogEntry struct {
	Severity string
	Fields   map[string]any
}

// Message returns the human readable text of the record.
func (e LogEntry) Message() string {
	if s, ok := e.Fields["message"].(string); ok {
		return s
	}
	return ""
}

type EnergyScan struct {
	IP any
	RM any
}

type Overlay struct {
	Show    bool
	Message string
}

// ParametersDialog is the workflow parameter form pushed by the server.
type ParametersDialog struct {
	Data map[string]any
	Show bool
}

type ActionState struct {
	State any
	Data  any
}

type Plot struct {
	ID       string
	Info     map[string]any
	Data     any
	Finished bool
}

type SampleChanger struct {
	State    any
	Loaded   any
	Global   any
	Contents map[string]any
}

type Harvester struct {
	State    any
	Contents map[string]any
}
