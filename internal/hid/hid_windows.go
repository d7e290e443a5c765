//go:build windows

package hid

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

func newManager(backend string) (Manager, error) {
	switch backend {
	case "", "hidapi":
		return newHidapiManager()
	case "win32":
		return &winManager{}, nil
	default:
		return nil, fmt.Errorf("unknown hid backend %q", backend)
	}
}

// win32 backend: direct SetupAPI + hid.dll syscalls, no extra runtime
// dependency. Useful when the hidapi DLL is missing or misbehaving.

var (
	hidDLL   = windows.NewLazySystemDLL("hid.dll")
	setupapi = windows.NewLazySystemDLL("setupapi.dll")

	procHidD_GetHidGuid                  = hidDLL.NewProc("HidD_GetHidGuid")
	procHidD_GetAttributes               = hidDLL.NewProc("HidD_GetAttributes")
	procHidD_GetProductString            = hidDLL.NewProc("HidD_GetProductString")
	procHidD_GetManufacturerString       = hidDLL.NewProc("HidD_GetManufacturerString")
	procHidD_GetPreparsedData            = hidDLL.NewProc("HidD_GetPreparsedData")
	procHidD_FreePreparsedData           = hidDLL.NewProc("HidD_FreePreparsedData")
	procHidP_GetCaps                     = hidDLL.NewProc("HidP_GetCaps")
	procSetupDiGetClassDevsW             = setupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInterfaces      = setupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = setupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procSetupDiDestroyDeviceInfoList     = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	DIGCF_PRESENT         = 0x00000002
	DIGCF_DEVICEINTERFACE = 0x00000010
	INVALID_HANDLE_VALUE  = ^uintptr(0)

	HIDP_STATUS_SUCCESS = 0x00110000
)

type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

type HIDD_ATTRIBUTES struct {
	Size          uint32
	VendorID      uint16
	ProductID     uint16
	VersionNumber uint16
}

type SP_DEVICE_INTERFACE_DATA struct {
	CbSize             uint32
	InterfaceClassGuid GUID
	Flags              uint32
	Reserved           uintptr
}

type SP_DEVICE_INTERFACE_DETAIL_DATA struct {
	CbSize     uint32
	DevicePath [1]uint16 // Variable length
}

type HIDP_CAPS struct {
	Usage                     uint16
	UsagePage                 uint16
	InputReportByteLength     uint16
	OutputReportByteLength    uint16
	FeatureReportByteLength   uint16
	Reserved                  [17]uint16
	NumberLinkCollectionNodes uint16
	NumberInputButtonCaps     uint16
	NumberInputValueCaps      uint16
	NumberInputDataIndices    uint16
	NumberOutputButtonCaps    uint16
	NumberOutputValueCaps     uint16
	NumberOutputDataIndices   uint16
	NumberFeatureButtonCaps   uint16
	NumberFeatureValueCaps    uint16
	NumberFeatureDataIndices  uint16
}

type winManager struct{}

// interfaceNumber pulls the mi_XX component out of a device interface
// path; -1 when the device has a single interface.
func interfaceNumber(path string) int {
	p := strings.ToLower(path)
	i := strings.Index(p, "mi_")
	if i < 0 || i+5 > len(p) {
		return -1
	}
	n, err := strconv.ParseInt(p[i+3:i+5], 16, 32)
	if err != nil {
		return -1
	}
	return int(n)
}

// deviceCaps reads the top-level usage page/usage and report lengths
// from a device handle.
func deviceCaps(h windows.Handle) (HIDP_CAPS, error) {
	var preparsed uintptr
	r, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&preparsed)))
	if r == 0 {
		return HIDP_CAPS{}, fmt.Errorf("HidD_GetPreparsedData failed")
	}
	defer procHidD_FreePreparsedData.Call(preparsed)

	var caps HIDP_CAPS
	r, _, _ = procHidP_GetCaps.Call(preparsed, uintptr(unsafe.Pointer(&caps)))
	if r != HIDP_STATUS_SUCCESS {
		return HIDP_CAPS{}, fmt.Errorf("HidP_GetCaps failed: 0x%X", r)
	}
	return caps, nil
}

func (m *winManager) List(vendorID uint16) ([]Info, error) {
	var hidGuid GUID
	procHidD_GetHidGuid.Call(uintptr(unsafe.Pointer(&hidGuid)))

	devInfo, _, err := procSetupDiGetClassDevsW.Call(
		uintptr(unsafe.Pointer(&hidGuid)),
		0,
		0,
		DIGCF_PRESENT|DIGCF_DEVICEINTERFACE,
	)
	if devInfo == 0 || devInfo == INVALID_HANDLE_VALUE {
		return nil, fmt.Errorf("SetupDiGetClassDevsW failed: %v", err)
	}
	defer procSetupDiDestroyDeviceInfoList.Call(devInfo)

	var devices []Info
	var devInterfaceData SP_DEVICE_INTERFACE_DATA
	devInterfaceData.CbSize = uint32(unsafe.Sizeof(devInterfaceData))

	for i := uint32(0); ; i++ {
		r, _, _ := procSetupDiEnumDeviceInterfaces.Call(
			devInfo,
			0,
			uintptr(unsafe.Pointer(&hidGuid)),
			uintptr(i),
			uintptr(unsafe.Pointer(&devInterfaceData)),
		)
		if r == 0 {
			break
		}

		var requiredSize uint32
		procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo,
			uintptr(unsafe.Pointer(&devInterfaceData)),
			0,
			0,
			uintptr(unsafe.Pointer(&requiredSize)),
			0,
		)

		detailData := make([]byte, requiredSize)
		detail := (*SP_DEVICE_INTERFACE_DETAIL_DATA)(unsafe.Pointer(&detailData[0]))
		// CbSize must be the C sizeof of the fixed part, not the buffer
		// length: 8 under 64-bit alignment, 6 on 32-bit.
		if unsafe.Sizeof(uintptr(0)) == 8 {
			detail.CbSize = 8
		} else {
			detail.CbSize = 6
		}

		r, _, _ = procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo,
			uintptr(unsafe.Pointer(&devInterfaceData)),
			uintptr(unsafe.Pointer(detail)),
			uintptr(requiredSize),
			0,
			0,
		)
		if r == 0 {
			continue
		}

		pathPtr := &detail.DevicePath[0]
		path := windows.UTF16PtrToString(pathPtr)

		// Open without access rights: enough for attributes and caps.
		h, err := windows.CreateFile(
			pathPtr,
			0,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
			nil,
			windows.OPEN_EXISTING,
			0,
			0,
		)
		if err != nil {
			continue
		}

		var attrs HIDD_ATTRIBUTES
		attrs.Size = uint32(unsafe.Sizeof(attrs))
		r, _, _ = procHidD_GetAttributes.Call(uintptr(h), uintptr(unsafe.Pointer(&attrs)))
		if r == 0 || (vendorID != 0 && attrs.VendorID != vendorID) {
			windows.CloseHandle(h)
			continue
		}

		mfr := make([]uint16, 256)
		procHidD_GetManufacturerString.Call(uintptr(h), uintptr(unsafe.Pointer(&mfr[0])), uintptr(len(mfr)*2))
		prod := make([]uint16, 256)
		procHidD_GetProductString.Call(uintptr(h), uintptr(unsafe.Pointer(&prod[0])), uintptr(len(prod)*2))

		info := Info{
			Path:         path,
			VendorID:     attrs.VendorID,
			ProductID:    attrs.ProductID,
			Manufacturer: windows.UTF16ToString(mfr),
			Product:      windows.UTF16ToString(prod),
			Interface:    interfaceNumber(path),
		}
		if caps, err := deviceCaps(h); err == nil {
			info.UsagePage = caps.UsagePage
			info.Usage = caps.Usage
		}
		windows.CloseHandle(h)

		devices = append(devices, info)
	}

	return devices, nil
}

func (m *winManager) Open(info Info) (Device, error) {
	pathPtr, err := windows.UTF16PtrFromString(info.Path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0, // Synchronous I/O
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("CreateFile %s: %v", info.Path, err)
	}

	caps, err := deviceCaps(h)
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}

	return &winDevice{
		handle:   h,
		path:     info.Path,
		inputLen: int(caps.InputReportByteLength),
	}, nil
}

func (m *winManager) Close() error { return nil }

type winDevice struct {
	handle   windows.Handle
	path     string
	inputLen int
}

func (d *winDevice) Read(p []byte) (int, error) {
	// ReadFile on a HID handle needs a buffer of exactly the input
	// report length; byte 0 carries the report id.
	buf := make([]byte, d.inputLen)
	var read uint32
	if err := windows.ReadFile(d.handle, buf, &read, nil); err != nil {
		return 0, fmt.Errorf("ReadFile %s: %v", d.path, err)
	}
	return copy(p, buf[:read]), nil
}

func (d *winDevice) Close() error {
	return windows.CloseHandle(d.handle)
}
