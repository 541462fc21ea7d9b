package model

import (
	"encoding/json"
	"testing"
)

func TestDeviceStateCapacity(t *testing.T) {
	d := DeviceState{Count: 10, AvgPowerW: 200, Availability: 0.1}
	if got := d.CapacityKW(); got != 2 {
		t.Fatalf("expected 2 kW got %v", got)
	}
	if got := (DeviceState{Count: 0, AvgPowerW: 200}).CapacityKW(); got != 0 {
		t.Fatalf("expected 0 got %v", got)
	}
}

func TestDeviceClassNames(t *testing.T) {
	want := []string{"phone", "laptop", "desktop", "traffic_light", "appliance"}
	for i, c := range Classes {
		if c.String() != want[i] {
			t.Fatalf("class %d: expected %s got %s", i, want[i], c)
		}
		parsed, err := ParseDeviceClass(want[i])
		if err != nil || parsed != c {
			t.Fatalf("parse %s: %v %v", want[i], parsed, err)
		}
	}
	if _, err := ParseDeviceClass("tractor"); err == nil {
		t.Fatal("expected error for unknown class")
	}
	if InfrastructureSignal.Label() != "Traffic Light" {
		t.Fatalf("unexpected label %q", InfrastructureSignal.Label())
	}
}

func TestDisplayOrderIsPermutation(t *testing.T) {
	seen := map[DeviceClass]bool{}
	for _, c := range DisplayOrder {
		seen[c] = true
	}
	if len(seen) != NumClasses {
		t.Fatalf("display order misses classes: %v", DisplayOrder)
	}
	if DisplayOrder[0] != FixedComputer || DisplayOrder[4] != CompactMobile {
		t.Fatalf("unexpected display order %v", DisplayOrder)
	}
}

func TestDeviceClassJSONKey(t *testing.T) {
	b, err := json.Marshal(map[DeviceClass]int{HouseholdAppliance: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"appliance":3}` {
		t.Fatalf("unexpected json %s", b)
	}
	var back map[DeviceClass]int
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[HouseholdAppliance] != 3 {
		t.Fatalf("round trip lost value: %v", back)
	}
}

func TestNewAllocationResult(t *testing.T) {
	res := NewAllocationResult(10, nil, []float64{4, 4}, []float64{4, 4})
	if res.AllocTotalKW != 8 || res.UnmetKW != 2 {
		t.Fatalf("unexpected totals %+v", res)
	}
	if p := res.PercentOffload(); p != 0.8 {
		t.Fatalf("expected 0.8 got %v", p)
	}
	zero := NewAllocationResult(0, nil, nil, nil)
	if zero.PercentOffload() != 1 || zero.UnmetKW != 0 {
		t.Fatalf("zero budget should be satisfied: %+v", zero)
	}
}

func TestBudgetUnit(t *testing.T) {
	if v, _ := UnitW.ToKW(1500); v != 1.5 {
		t.Fatalf("expected 1.5 got %v", v)
	}
	if v, _ := BudgetUnit("").ToKW(3); v != 3 {
		t.Fatalf("expected 3 got %v", v)
	}
	if v, _ := BudgetUnit("KW").ToKW(3); v != 3 {
		t.Fatalf("expected case insensitive unit, got %v", v)
	}
	if _, err := BudgetUnit("mw").ToKW(1); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}
