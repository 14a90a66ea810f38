package models

import "testing"

func TestJobStatus_Terminal(t *testing.T) {
	terminal := []JobStatus{StatusCompleted, StatusFailed, StatusAborted}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	for _, s := range NonTerminalStatuses {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestSummarize(t *testing.T) {
	jobs := []*UploadJob{
		{Status: StatusInitiated, FileSizeBytes: 100},
		{Status: StatusCompleting, FileSizeBytes: 200},
		{Status: StatusCompleted, FileSizeBytes: 300},
		{Status: StatusFailed, FileSizeBytes: 400},
		{Status: StatusAborted, FileSizeBytes: 500},
	}

	s := Summarize(jobs)
	if s.Pending != 2 {
		t.Errorf("Pending = %d, expected 2 (INITIATED and COMPLETING)", s.Pending)
	}
	if s.Completed != 1 {
		t.Errorf("Completed = %d, expected 1", s.Completed)
	}
	if s.Failed != 2 {
		t.Errorf("Failed = %d, expected 2 (FAILED and ABORTED)", s.Failed)
	}
	if s.TotalSizeBytes != 1500 {
		t.Errorf("TotalSizeBytes = %d, expected 1500", s.TotalSizeBytes)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Pending != 0 || s.Completed != 0 || s.Failed != 0 || s.TotalSizeBytes != 0 {
		t.Errorf("empty input must produce a zero summary, got %+v", s)
	}
}
