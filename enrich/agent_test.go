// api/enrich/agent_test.go
package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Mobile/15E148 Safari/604.1"
)

func TestParseEmptyString(t *testing.T) {
	agent := NewUAParser().Parse("")
	assert.Equal(t, Agent{Browser: Unknown, Device: Unknown, OS: Unknown}, agent)
}

func TestParseGarbage(t *testing.T) {
	agent := NewUAParser().Parse("%%%%%%%% definitely not a user agent")
	assert.Equal(t, Unknown, agent.Browser)
	assert.Equal(t, Unknown, agent.Device)
	assert.Equal(t, Unknown, agent.OS)
}

func TestParseDesktopChrome(t *testing.T) {
	agent := NewUAParser().Parse(chromeUA)
	assert.True(t, strings.HasPrefix(agent.Browser, "Chrome"), "browser = %q", agent.Browser)
	assert.Contains(t, agent.Browser, "91.0")
	// No device model on desktop: fall back to the OS family.
	assert.Equal(t, "Windows", agent.Device)
	assert.True(t, strings.HasPrefix(agent.OS, "Windows"), "os = %q", agent.OS)
}

func TestParseIPhoneSafari(t *testing.T) {
	agent := NewUAParser().Parse(iphoneUA)
	assert.True(t, strings.HasPrefix(agent.Browser, "Safari"), "browser = %q", agent.Browser)
	assert.Equal(t, "iPhone", agent.Device)
	assert.True(t, strings.HasPrefix(agent.OS, "iOS"), "os = %q", agent.OS)
}
