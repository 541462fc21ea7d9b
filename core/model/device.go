// Package model holds the allocation domain types shared by the builder, the
// scorer and the allocator.
package model

import (
	"fmt"
	"strings"
)

// DeviceClass identifies one of the fixed device categories. The numeric value
// is the model order used for feature and score vectors.
type DeviceClass int

const (
	CompactMobile DeviceClass = iota
	PortableComputer
	FixedComputer
	InfrastructureSignal
	HouseholdAppliance
)

// NumClasses is the number of device classes.
const NumClasses = 5

// Classes lists every class in model order.
var Classes = [NumClasses]DeviceClass{
	CompactMobile,
	PortableComputer,
	FixedComputer,
	InfrastructureSignal,
	HouseholdAppliance,
}

// DisplayOrder is the order used for human readable summaries and charts.
var DisplayOrder = [NumClasses]DeviceClass{
	FixedComputer,
	PortableComputer,
	InfrastructureSignal,
	HouseholdAppliance,
	CompactMobile,
}

var classNames = [NumClasses]string{"phone", "laptop", "desktop", "traffic_light", "appliance"}

var classLabels = [NumClasses]string{"Phone", "Laptop", "Desktop", "Traffic Light", "Appliance"}

// String returns the wire name of the class ("phone", "traffic_light", ...).
func (c DeviceClass) String() string {
	if !c.Valid() {
		return fmt.Sprintf("DeviceClass(%d)", int(c))
	}
	return classNames[c]
}

// Label returns the display label of the class.
func (c DeviceClass) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return classLabels[c]
}

// Valid reports whether c is one of the known classes.
func (c DeviceClass) Valid() bool {
	return c >= 0 && int(c) < NumClasses
}

// ParseDeviceClass maps a wire name back to its class.
func ParseDeviceClass(s string) (DeviceClass, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range classNames {
		if n == s {
			return DeviceClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown device class %q", s)
}

// MarshalText lets classes be used as JSON object keys.
func (c DeviceClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid device class %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *DeviceClass) UnmarshalText(b []byte) error {
	v, err := ParseDeviceClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MaxCount is the largest device count a request may carry. Every integer up
// to it is exact as a float64 feature.
const MaxCount = 1 << 53

// DeviceState is the aggregate description of one class in a request.
// Availability is a scoring feature only; it does not scale capacity.
type DeviceState struct {
	Count        int     `json:"count"`
	AvgPowerW    float64 `json:"avg_power_w"`
	Availability float64 `json:"availability"`
}

// CapacityKW is the upper bound on the power the class can absorb.
func (d DeviceState) CapacityKW() float64 {
	c := float64(d.Count) * d.AvgPowerW / 1000
	if c < 0 {
		return 0
	}
	return c
}

// Fleet holds one DeviceState per class, indexed by DeviceClass.
type Fleet [NumClasses]DeviceState

// Capacities returns the per class capacity in model order.
func (f Fleet) Capacities() []float64 {
	out := make([]float64, NumClasses)
	for i, d := range f {
		out[i] = d.CapacityKW()
	}
	return out
}

// Counts returns the device counts keyed by class name.
func (f Fleet) Counts() map[string]int {
	out := make(map[string]int, NumClasses)
	for i, d := range f {
		out[DeviceClass(i).String()] = d.Count
	}
	return out
}
