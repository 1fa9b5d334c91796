package refreshtoken

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceInfo(t *testing.T) {
	tests := []struct {
		name       string
		info       SessionInfo
		deviceType string
		browser    string
	}{
		{
			name:       "empty user agent",
			info:       SessionInfo{},
			deviceType: "Unknown",
			browser:    "Unknown Browser",
		},
		{
			name:       "desktop firefox",
			info:       SessionInfo{UserAgent: firefoxUA},
			deviceType: "Desktop",
			browser:    "Firefox",
		},
		{
			name:       "iphone safari",
			info:       SessionInfo{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"},
			deviceType: "Mobile",
			browser:    "Safari",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseDeviceInfo(tt.info)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			assert.Contains(t, info.Browser, tt.browser)
			assert.NotEmpty(t, info.Device)
		})
	}
}

func TestEncodeDeviceInfo_KeepsIPAddress(t *testing.T) {
	encoded := encodeDeviceInfo(SessionInfo{IPAddress: "192.168.1.1"})
	assert.Contains(t, encoded, `"ip_address":"192.168.1.1"`)
	assert.Contains(t, encoded, `"browser":"Unknown Browser"`)
}

func TestEncodeDeviceInfo_OversizedUserAgent(t *testing.T) {
	tests := []struct {
		name string
		info SessionInfo
	}{
		{
			name: "long version",
			info: SessionInfo{UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Firefox/" + strings.Repeat("9", 4000)},
		},
		{
			name: "long product token",
			info: SessionInfo{UserAgent: strings.Repeat("Agent", 1000) + "/1.0"},
		},
		{
			name: "characters needing escapes",
			info: SessionInfo{UserAgent: strings.Repeat(`"\\<>&`, 500) + "/1.0", IPAddress: strings.Repeat("\x01", 300)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeDeviceInfo(tt.info)

			require.NotEmpty(t, encoded)
			assert.LessOrEqual(t, utf8.RuneCountInString(encoded), maxDeviceInfoLength)

			var decoded DeviceInfo
			require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
			assert.LessOrEqual(t, utf8.RuneCountInString(decoded.Browser), maxDeviceFieldLength)
			assert.LessOrEqual(t, utf8.RuneCountInString(decoded.IPAddress), maxDeviceFieldLength)
		})
	}
}

func TestClipField(t *testing.T) {
	assert.Equal(t, "Firefox 120.0", clipField("Firefox 120.0"))
	assert.Equal(t, "ab", clipField("a\"\\b\n"))
	assert.Equal(t, "téléphone", clipField("téléphone"))
	assert.Equal(t, strings.Repeat("é", maxDeviceFieldLength), clipField(strings.Repeat("é", 100)))
}
