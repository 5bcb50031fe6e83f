package agent

import (
	"context"
	"testing"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Execute(_ context.Context, _ Request, _ StreamHandler) (*Response, error) {
	return &Response{Success: true}, nil
}

func TestProviderRegistry(t *testing.T) {
	RegisterProvider(&stubProvider{name: "stub-a"})
	RegisterProvider(&stubProvider{name: "stub-b"})

	p, err := GetProvider("stub-a")
	if err != nil {
		t.Fatalf("GetProvider(stub-a) failed: %v", err)
	}
	if p.Name() != "stub-a" {
		t.Errorf("provider name = %q, want stub-a", p.Name())
	}

	if _, err := GetProvider("no-such-provider"); err == nil {
		t.Error("expected error for unknown provider")
	}

	names := ListProviders()
	found := 0
	for _, name := range names {
		if name == "stub-a" || name == "stub-b" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("ListProviders() = %v, missing stub providers", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("ListProviders() not sorted: %v", names)
			break
		}
	}
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		name       string
		stepEnvVar string
		stepValue  string
		globalVal  string
		want       string
	}{
		{
			name:       "step override wins",
			stepEnvVar: EnvImplementProvider,
			stepValue:  "opencode",
			globalVal:  "claude",
			want:       "opencode",
		},
		{
			name:       "global when step unset",
			stepEnvVar: EnvImplementProvider,
			globalVal:  "opencode",
			want:       "opencode",
		},
		{
			name: "default when nothing set",
			want: DefaultProvider,
		},
		{
			name:       "blank step value falls through",
			stepEnvVar: EnvImplementProvider,
			stepValue:  "   ",
			globalVal:  "opencode",
			want:       "opencode",
		},
		{
			name:      "no step var consults global",
			globalVal: "opencode",
			want:      "opencode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvImplementProvider, "")
			t.Setenv(EnvAgentProvider, "")
			if tt.stepEnvVar != "" {
				t.Setenv(tt.stepEnvVar, tt.stepValue)
			}
			if tt.globalVal != "" {
				t.Setenv(EnvAgentProvider, tt.globalVal)
			}

			if got := SelectProvider(tt.stepEnvVar); got != tt.want {
				t.Errorf("SelectProvider(%q) = %q, want %q", tt.stepEnvVar, got, tt.want)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{Prompt: "/classify", ADWID: "adw-abc123", AgentName: AgentClassifier}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  Request
	}{
		{"empty prompt", Request{ADWID: "adw-abc123", AgentName: AgentClassifier}},
		{"missing adw id", Request{Prompt: "/classify", AgentName: AgentClassifier}},
		{"missing agent name", Request{Prompt: "/classify", ADWID: "adw-abc123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
