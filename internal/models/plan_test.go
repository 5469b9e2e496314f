package models

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbers(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"x1","b":1718000000123,"c":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "x1" || v.B != "1718000000123" || v.C != "" {
		t.Errorf("got %q/%q/%q", v.A, v.B, v.C)
	}
	if err := json.Unmarshal([]byte(`{"a":true}`), &v); err == nil {
		t.Error("bool id should fail")
	}
}

func TestClampProgress(t *testing.T) {
	for in, want := range map[int]int{-20: 0, 0: 0, 55: 55, 100: 100, 150: 100} {
		if got := ClampProgress(in); got != want {
			t.Errorf("ClampProgress(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestEstimateDefault(t *testing.T) {
	if got := (Task{}).Estimate(); got != DefaultEstimate {
		t.Errorf("Estimate() = %d, want %d", got, DefaultEstimate)
	}
	if got := (Task{EstimatedTime: 25}).Estimate(); got != 25 {
		t.Errorf("Estimate() = %d, want 25", got)
	}
}
