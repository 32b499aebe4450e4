package mx

import "fmt"

// DeviceType is the kind of device an array lives on. The values are the
// engine's device type codes.
type DeviceType int

const (
	DeviceCPU       DeviceType = 1
	DeviceGPU       DeviceType = 2
	DeviceCPUPinned DeviceType = 3
	DeviceCPUShared DeviceType = 5
)

// DeviceTypeFromCode converts an engine device type code.
func DeviceTypeFromCode(code int) (DeviceType, error) {
	switch t := DeviceType(code); t {
	case DeviceCPU, DeviceGPU, DeviceCPUPinned, DeviceCPUShared:
		return t, nil
	}
	return 0, &UnknownDeviceTypeError{Code: code}
}

func (t DeviceType) String() string {
	switch t {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	case DeviceCPUPinned:
		return "cpu_pinned"
	case DeviceCPUShared:
		return "cpu_shared"
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

// Context names a device. The zero value is cpu(0).
type Context struct {
	deviceType DeviceType
	deviceID   int
}

func NewContext(t DeviceType, id int) Context {
	return Context{deviceType: t, deviceID: id}
}

func CPU() Context {
	return NewContext(DeviceCPU, 0)
}

func GPU(id int) Context {
	return NewContext(DeviceGPU, id)
}

func CPUPinned() Context {
	return NewContext(DeviceCPUPinned, 0)
}

func CPUShared() Context {
	return NewContext(DeviceCPUShared, 0)
}

func (c Context) DeviceType() DeviceType {
	if c.deviceType == 0 {
		return DeviceCPU
	}
	return c.deviceType
}

func (c Context) DeviceID() int {
	return c.deviceID
}

// String returns the engine's textual form, e.g. "gpu(1)".
func (c Context) String() string {
	return fmt.Sprintf("%s(%d)", c.DeviceType(), c.deviceID)
}
