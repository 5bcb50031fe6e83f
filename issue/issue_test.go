package issue

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"pending", StatusPending},
		{"started", StatusStarted},
		{"completed", StatusCompleted},
		{"failed", StatusFailed},
		{"patch pending", StatusPending},
		{"patched", StatusCompleted},
		{"  started  ", StatusStarted},
		{"bogus", Status("bogus")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeStatus(tt.raw); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusStarted, StatusCompleted, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "patched", "patch pending", "done"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusStarted, true},
		{StatusStarted, StatusCompleted, true},
		{StatusStarted, StatusFailed, true},
		{StatusStarted, StatusPending, true}, // worker requeue
		{StatusFailed, StatusPending, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusStarted, false},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusStarted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIssueValidate(t *testing.T) {
	valid := &Issue{ID: 1, Description: "add endpoint", Status: StatusPending, Type: TypeMain}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid issue rejected: %v", err)
	}

	tests := []struct {
		name  string
		issue *Issue
	}{
		{"empty description", &Issue{ID: 1, Status: StatusPending, Type: TypeMain}},
		{"whitespace description", &Issue{ID: 1, Description: "   \n\t", Status: StatusPending, Type: TypeMain}},
		{"bad status", &Issue{ID: 1, Description: "x", Status: "done", Type: TypeMain}},
		{"bad type", &Issue{ID: 1, Description: "x", Status: StatusPending, Type: "hotfix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.issue.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	transient := NewTransientError(ErrNotFound)
	if !IsTransient(transient) {
		t.Error("expected transient classification")
	}
	if IsFatal(transient) {
		t.Error("transient error misclassified as fatal")
	}

	fatal := NewFatalError(ErrNotFound)
	if !IsFatal(fatal) {
		t.Error("expected fatal classification")
	}
	if IsTransient(fatal) {
		t.Error("fatal error misclassified as transient")
	}

	if IsTransient(ErrNotFound) || IsFatal(ErrNotFound) {
		t.Error("unwrapped error should have no classification")
	}
}
