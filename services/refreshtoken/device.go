package refreshtoken

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mileusna/useragent"
)

const (
	// maxDeviceInfoLength matches the device_info column size.
	maxDeviceInfoLength  = 500
	maxDeviceFieldLength = 64
)

type DeviceInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
	Device     string `json:"device"`
	IPAddress  string `json:"ip_address,omitempty"`
}

func ParseDeviceInfo(info SessionInfo) DeviceInfo {
	if info.UserAgent == "" {
		return DeviceInfo{
			Browser:    "Unknown Browser",
			OS:         "Unknown OS",
			DeviceType: "Unknown",
			Device:     "Unknown Device",
			IPAddress:  clipField(info.IPAddress),
		}
	}

	ua := useragent.Parse(info.UserAgent)

	deviceType := "Desktop"
	if ua.Mobile {
		deviceType = "Mobile"
	} else if ua.Tablet {
		deviceType = "Tablet"
	} else if ua.Bot {
		deviceType = "Bot"
	}

	browser := "Unknown Browser"
	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
	}

	os := "Unknown OS"
	if ua.OS != "" {
		os = ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
	}

	device := ua.Device
	if device == "" {
		switch deviceType {
		case "Mobile":
			device = "Mobile Device"
		case "Tablet":
			device = "Tablet"
		default:
			device = "Desktop Computer"
		}
	}

	return DeviceInfo{
		Browser:    clipField(browser),
		OS:         clipField(os),
		DeviceType: deviceType,
		Device:     clipField(device),
		IPAddress:  clipField(info.IPAddress),
	}
}

// clipField drops characters that would need escaping in JSON and caps the
// field at maxDeviceFieldLength runes.
func clipField(value string) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n == maxDeviceFieldLength {
			break
		}
		if !unicode.IsPrint(r) || r == '"' || r == '\\' {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

func encodeDeviceInfo(info SessionInfo) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ParseDeviceInfo(info)); err != nil {
		return ""
	}
	encoded := strings.TrimSuffix(buf.String(), "\n")
	if utf8.RuneCountInString(encoded) > maxDeviceInfoLength {
		return ""
	}
	return encoded
}
