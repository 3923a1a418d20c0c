// api/enrich/agent.go
package enrich

import (
	"strings"

	"github.com/mileusna/useragent"
)

// Agent is the parsed user-agent descriptor. Fields degrade to "Unknown"
// individually; Parse never fails.
type Agent struct {
	Browser string `json:"browser"`
	Device  string `json:"device"`
	OS      string `json:"os"`
}

type AgentParser interface {
	Parse(rawUserAgent string) Agent
}

// UAParser parses user-agent strings with mileusna/useragent.
type UAParser struct{}

func NewUAParser() UAParser {
	return UAParser{}
}

func (UAParser) Parse(rawUserAgent string) Agent {
	ua := useragent.Parse(rawUserAgent)

	browser := Unknown
	if ua.Name != "" {
		browser = strings.TrimSpace(ua.Name + " " + ua.Version)
	}

	os := Unknown
	if ua.OS != "" {
		os = strings.TrimSpace(ua.OS + " " + ua.OSVersion)
	}

	// A recognizable device model wins; otherwise fall back to the OS family,
	// which is the most useful label for desktop browsers.
	device := Unknown
	switch {
	case ua.Device != "":
		device = strings.TrimSpace(ua.Device)
	case ua.OS != "":
		device = ua.OS
	}

	return Agent{Browser: browser, Device: device, OS: os}
}
