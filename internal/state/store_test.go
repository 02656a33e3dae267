package state

import (
	"sync"
	"testing"
)

func TestNewStoreEmpty(t *testing.T) {
	s := NewStore()
	if s.User() != (User{}) {
		t.Errorf("new store user = %+v, want zero", s.User())
	}
	if got := len(s.Observers()); got != 0 {
		t.Errorf("new store has %d observers, want 0", got)
	}
	if _, ok := s.Collapsed("1"); ok {
		t.Error("Collapsed on empty store returned ok=true")
	}
	if _, ok := s.WaitDialog(); ok {
		t.Error("new store has an active wait dialog")
	}
}

func TestMotorUpserts(t *testing.T) {
	s := NewStore()
	s.Apply(
		SaveMotorPosition{Name: "phi", Position: 12.5},
		UpdateMotorState{Name: "phi", State: "MOVING"},
		SaveMotorPosition{Name: "phi", Position: 13},
	)

	got := s.Snapshot().Motors["phi"]
	if got.Position != 13 || got.State != "MOVING" {
		t.Errorf("motor = %+v, want {13 MOVING}", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Apply(SaveMotorPosition{Name: "phi", Position: 1})

	snap := s.Snapshot()
	snap.Motors["phi"] = Motor{Position: 99}
	snap.Observers = append(snap.Observers, Observer{Nickname: "x"})

	if got := s.Snapshot().Motors["phi"].Position; got != 1 {
		t.Errorf("snapshot mutation leaked into store: position = %v", got)
	}
	if got := len(s.Observers()); got != 0 {
		t.Errorf("observers leaked: %d", got)
	}
}

func TestSnapshotSurvivesLaterMutations(t *testing.T) {
	s := NewStore()
	s.Apply(UpdateHardwareObject{Object: map[string]any{"name": "energy", "value": 12.4}})
	before := s.Snapshot()

	s.Apply(UpdateHardwareObjectValue{Update: map[string]any{"name": "energy", "value": 13.0}})

	if got := before.HardwareObjects["energy"]["value"]; got != 12.4 {
		t.Errorf("earlier snapshot changed: value = %v", got)
	}
	if got := s.Snapshot().HardwareObjects["energy"]["value"]; got != 13.0 {
		t.Errorf("value = %v, want 13", got)
	}
}

func TestHardwareObjectAttributeMerge(t *testing.T) {
	s := NewStore()
	s.Apply(
		UpdateHardwareObject{Object: map[string]any{"name": "beamstop", "state": "IN"}},
		UpdateHardwareObjectAttribute{Update: map[string]any{"name": "beamstop", "attribute": "state", "value": "OUT"}},
		UpdateHardwareObjectAttribute{Update: map[string]any{"name": "new", "attribute": "limits", "value": []any{0.0, 1.0}}},
		UpdateHardwareObjectAttribute{Update: map[string]any{"attribute": "ignored"}},
	)

	objs := s.Snapshot().HardwareObjects
	if objs["beamstop"]["state"] != "OUT" {
		t.Errorf("beamstop state = %v, want OUT", objs["beamstop"]["state"])
	}
	if objs["new"]["name"] != "new" {
		t.Errorf("created object missing name: %v", objs["new"])
	}
	if len(objs) != 2 {
		t.Errorf("got %d objects, want 2", len(objs))
	}
}

func TestShapes(t *testing.T) {
	s := NewStore()
	s.Apply(SetShapes{Shapes: map[string]any{"P1": map[string]any{"id": "P1"}, "P2": map[string]any{"id": "P2"}}})
	s.Apply(SetShapes{Shapes: map[string]any{"G1": map[string]any{"id": "G1"}}})

	shapes := s.Snapshot().Shapes
	if len(shapes) != 1 {
		t.Fatalf("SetShapes did not replace: %v", shapes)
	}

	s.Apply(UpdateShapes{Shapes: []map[string]any{{"id": "G1", "result": "ok"}, {"id": "P3"}}})
	shapes = s.Snapshot().Shapes
	if len(shapes) != 2 {
		t.Fatalf("UpdateShapes did not merge: %v", shapes)
	}
	if shapes["G1"].(map[string]any)["result"] != "ok" {
		t.Errorf("G1 not updated: %v", shapes["G1"])
	}
}

func TestTaskRecordsAndLims(t *testing.T) {
	s := NewStore()
	s.Apply(UpdateTaskLimsData{Sample: "1:01", TaskIndex: 0, LimsResultData: "early"})
	s.Apply(AddTaskResult{Record: TaskRecord{Sample: "1:01", TaskIndex: 0, State: 1, QueueID: "7"}})

	rec, ok := s.Task("7")
	if !ok {
		t.Fatal("task 7 missing")
	}
	if rec.LimsResultData != "early" {
		t.Errorf("LimsResultData = %v, want early", rec.LimsResultData)
	}

	s.Apply(UpdateTaskLimsData{Sample: "1:01", TaskIndex: 0, LimsResultData: "late"})
	rec, _ = s.Task("7")
	if rec.LimsResultData != "late" {
		t.Errorf("LimsResultData = %v, want late", rec.LimsResultData)
	}

	s.Apply(AddTaskResult{Record: TaskRecord{Sample: "1:01", TaskIndex: 0, State: 2, Progress: 1, QueueID: "7", LimsResultData: "final"}})
	rec, _ = s.Task("7")
	if rec.State != 2 || rec.LimsResultData != "final" {
		t.Errorf("upsert failed: %+v", rec)
	}
}

func TestQueueDisplayEntries(t *testing.T) {
	s := NewStore()
	s.Apply(SetQueue{Queue: map[string]any{
		"queue": []any{"1:01"},
		"sampleList": map[string]any{
			"1:01": map[string]any{
				"queueID": 3.0,
				"tasks":   []any{map[string]any{"queueID": 4.0}, map[string]any{"queueID": "5"}},
			},
		},
	}})

	for _, id := range []string{"3", "4", "5"} {
		if collapsed, ok := s.Collapsed(id); !ok || collapsed {
			t.Errorf("Collapsed(%s) = %v, %v; want false, true", id, collapsed, ok)
		}
	}

	s.Apply(SetCollapsed{QueueID: "4", Collapsed: true})
	s.Apply(SetQueue{Queue: map[string]any{"tasks": []any{map[string]any{"queueID": 4.0}}}})
	if collapsed, _ := s.Collapsed("4"); !collapsed {
		t.Error("refetch reset an existing collapsed flag")
	}

	s.Apply(AddTasks{Tasks: []map[string]any{{"queueID": 9.0, "type": "DataCollection"}, {"type": "no id"}}})
	if _, ok := s.Collapsed("9"); !ok {
		t.Error("AddTasks did not create a display entry")
	}
}

func TestSetCollapsedIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Apply(SetCollapsed{QueueID: "1", Collapsed: true}, SetCollapsed{QueueID: "1", Collapsed: true})
	if collapsed, ok := s.Collapsed("1"); !ok || !collapsed {
		t.Errorf("Collapsed(1) = %v, %v; want true, true", collapsed, ok)
	}
}

func TestWaitDialogReplaceAndHide(t *testing.T) {
	s := NewStore()
	s.Apply(ShowWaitDialog{Request: WaitDialogRequest{Title: "first"}})
	s.Apply(ShowWaitDialog{Request: WaitDialogRequest{Title: "second", Cancellable: true, CancelAction: StopQueue}})

	req, ok := s.WaitDialog()
	if !ok || req.Title != "second" || req.CancelAction != StopQueue {
		t.Errorf("WaitDialog() = %+v, %v", req, ok)
	}

	s.Apply(HideWaitDialog{})
	if _, ok := s.WaitDialog(); ok {
		t.Error("dialog still active after HideWaitDialog")
	}
}

func TestGphlDialogUpdateKeepsVisibility(t *testing.T) {
	s := NewStore()
	s.Apply(UpdateGphlWorkflowParametersDialog{Data: map[string]any{"a": 1}})
	if s.Snapshot().GphlDialog.Show {
		t.Error("update opened the dialog")
	}

	s.Apply(ShowGphlWorkflowParametersDialog{Data: map[string]any{"a": 1, "b": 2}})
	s.Apply(UpdateGphlWorkflowParametersDialog{Data: map[string]any{"b": 3}})
	d := s.Snapshot().GphlDialog
	if !d.Show || d.Data["a"] != 1 || d.Data["b"] != 3 {
		t.Errorf("GphlDialog = %+v", d)
	}
}

func TestLogsAreCapped(t *testing.T) {
	s := NewStore()
	for i := 0; i < maxLogEntries+10; i++ {
		s.Apply(AddLogRecord{Record: LogEntry{Severity: "INFO", Fields: map[string]any{"n": i}}})
	}
	logs := s.Snapshot().Logs
	if len(logs) != maxLogEntries {
		t.Fatalf("len(Logs) = %d, want %d", len(logs), maxLogEntries)
	}
	if logs[0].Fields["n"] != 10 {
		t.Errorf("oldest kept entry = %v, want 10", logs[0].Fields["n"])
	}
}

func TestPlots(t *testing.T) {
	s := NewStore()
	s.Apply(
		NewPlot{Info: map[string]any{"id": 1.0, "title": "scan"}},
		PlotData{ID: "1", Data: []any{1.0}},
	)
	if p := s.Snapshot().Plots["1"]; p.Finished || p.Info["title"] != "scan" {
		t.Errorf("plot = %+v", p)
	}
	s.Apply(PlotData{ID: "1", Data: []any{1.0, 2.0}, Final: true}, PlotEnd{Info: map[string]any{"id": 1.0}})
	if p := s.Snapshot().Plots["1"]; !p.Finished || p.Info["title"] != "scan" {
		t.Errorf("plot after end = %+v", p)
	}
}

func TestSignedOut(t *testing.T) {
	s := NewStore()
	s.Apply(
		SetLoginInfo{Info: LoginInfo{LoggedIn: true, User: User{Username: "alice", InControl: true}}},
		SetRemoteAccess{State: RemoteAccess{Observers: []Observer{{Nickname: "bob"}}}},
	)
	s.Apply(SignedOut{})
	if s.User().Username != "" || len(s.Observers()) != 0 {
		t.Errorf("state not cleared: %+v %v", s.User(), s.Observers())
	}
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	var seen []Mutation
	cancel := s.Subscribe(func(m Mutation) {
		mu.Lock()
		seen = append(seen, m)
		mu.Unlock()
	})

	s.Apply(SetCurrentSample{SampleID: "1:02"}, SetCurrentPhase{Phase: "Centring"})
	cancel()
	s.Apply(SetCurrentPhase{Phase: "DataCollection"})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("subscriber saw %d mutations, want 2", len(seen))
	}
	if _, ok := seen[0].(SetCurrentSample); !ok {
		t.Errorf("first mutation %T, want SetCurrentSample", seen[0])
	}
}

func TestConcurrentApplyAndRead(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Apply(SaveMotorPosition{Name: "phi", Position: float64(i*100 + j)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
				_ = s.User()
			}
		}()
	}
	wg.Wait()
}
