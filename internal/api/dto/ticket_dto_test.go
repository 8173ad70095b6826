package dto

import (
	"encoding/json"
	"testing"
)

func TestUpdateTicketRequestTechnicianField(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue *string
	}{
		{name: "absent", body: `{"title":"x"}`, wantSet: false},
		{name: "explicit null", body: `{"technician_id":null}`, wantSet: true, wantValue: nil},
		{name: "value", body: `{"technician_id":"tech-9"}`, wantSet: true, wantValue: strptr("tech-9")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateTicketRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.Technician.Set != tc.wantSet {
				t.Fatalf("want Set=%v, got %v", tc.wantSet, req.Technician.Set)
			}
			if tc.wantValue == nil {
				if req.Technician.Value != nil {
					t.Errorf("want nil value, got %q", *req.Technician.Value)
				}
				return
			}
			if req.Technician.Value == nil || *req.Technician.Value != *tc.wantValue {
				t.Errorf("want value %q, got %v", *tc.wantValue, req.Technician.Value)
			}
		})
	}
}

func TestOptionalStringRejectsNonString(t *testing.T) {
	var o OptionalString
	if err := json.Unmarshal([]byte(`42`), &o); err == nil {
		t.Error("expected error for non-string value")
	}
}

func strptr(s string) *string { return &s }
