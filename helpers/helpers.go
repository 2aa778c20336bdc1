package helpers

import (
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/lrstanley/girc"
)

func UnixTimeToHumanReadable(timestamp int64) string {
	if timestamp == 0 {
		return "never"
	}

	return durafmt.Parse(time.Second * time.Duration(time.Now().Unix()-timestamp)).String()
}

// StringToStatusIndicator converts a string to a status indicator string.
func StringToStatusIndicator(s string) string {
	if s == "" {
		return "[N/A]"
	}
	if s == "true" {
		return "[YES]"
	} else if s == "false" {
		return "[NO]"
	}
	return "[?]"
}

// GetModes extracts channel prefix modes from a WHO flags field.
func GetModes(modes string) []string {
	var foundModes []string
	for _, char := range modes {
		switch char {
		case '@', '+', '~', '&', '%':
			foundModes = append(foundModes, string(char))
		}
	}
	return foundModes
}

func ModeHas(modes []string, checkMode string) bool {
	for _, mode := range modes {
		if mode == checkMode {
			return true
		}
	}
	return false
}

func FindChannelNameInEventParams(event girc.Event) string {
	for _, param := range event.Params {
		if strings.HasPrefix(param, "#") {
			return param
		}
	}
	return ""
}
