package flagcore

import "testing"

type recordingDiagnostics struct {
	marks []Marker
}

func (r *recordingDiagnostics) Mark(m Marker) { r.marks = append(r.marks, m) }

func TestMarkerBuilderRecordsFields(t *testing.T) {
	sink := &recordingDiagnostics{}
	newMarker(sink, ConfigSyncContext, "download_config_specs").
		step("network_request").
		action("fetch").
		succeeded(true).
		status(200).
		mark()

	if len(sink.marks) != 1 {
		t.Fatalf("expected exactly one marker, got %d", len(sink.marks))
	}
	m := sink.marks[0]
	if m.Context != ConfigSyncContext || m.Key != "download_config_specs" {
		t.Fatalf("unexpected marker context/key: %+v", m)
	}
	if m.Success == nil || !*m.Success {
		t.Fatalf("expected success=true, got %v", m.Success)
	}
	if m.StatusCode == nil || *m.StatusCode != 200 {
		t.Fatalf("expected status=200, got %v", m.StatusCode)
	}
	if m.Timestamp == 0 {
		t.Fatalf("expected mark() to stamp a timestamp")
	}
}

func TestNopDiagnosticsDiscardsMarks(t *testing.T) {
	newMarker(nil, InitializeContext, "x").mark()
}
