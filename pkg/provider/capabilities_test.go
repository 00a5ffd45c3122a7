package provider

import "testing"

func TestValidateCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		caps    Capabilities
		stream  bool
		wantErr bool
	}{
		{"completion supported", Capabilities{Completion: true}, false, false},
		{"completion unsupported", Capabilities{Streaming: true}, false, true},
		{"streaming supported", Capabilities{Streaming: true}, true, false},
		{"streaming unsupported", Capabilities{Completion: true}, true, true},
		{"nothing supported", Capabilities{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCapabilities(tt.caps, tt.stream)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if err.Param != "stream" {
					t.Errorf("expected param %q, got %q", "stream", err.Param)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEventTypeString(t *testing.T) {
	if EventTextDelta.String() != "text_delta" || EventDone.String() != "done" || EventError.String() != "error" {
		t.Error("unexpected event type names")
	}
	if EventType(42).String() != "unknown" {
		t.Error("out of range event type should be unknown")
	}
}
