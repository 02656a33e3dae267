package state

// Effect is a server round trip requested by an event handler or a
// dialog action. The session performs effects off the dispatch loop and
// applies whatever they fetch as mutations.
type Effect int

const (
	NoEffect Effect = iota
	FetchQueue
	FetchRemoteAccess
	FetchSampleChangerContents
	FetchHarvesterContents
	StopQueue
	SignOut
	FetchLoginInfo
)

func (e Effect) String() string {
	switch e {
	case NoEffect:
		return "none"
	case FetchQueue:
		return "fetch_queue"
	case FetchRemoteAccess:
		return "fetch_remote_access"
	case FetchSampleChangerContents:
		return "fetch_sc_contents"
	case FetchHarvesterContents:
		return "fetch_harvester_contents"
	case StopQueue:
		return "stop_queue"
	case SignOut:
		return "sign_out"
	case FetchLoginInfo:
		return "fetch_login_info"
	}
	return "unknown"
}
