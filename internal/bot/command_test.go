package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	names := []string{"weather", "w"}

	tests := []struct {
		body     string
		cmd      string
		location string
		ok       bool
	}{
		{"!weather London", "weather", "London", true},
		{"  !w   New York, NY  ", "w", "New York, NY", true},
		{"!weather", "weather", "", true},
		{"!weather   ", "weather", "", true},
		{"!weatherman London", "", "", false},
		{"weather London", "", "", false},
		{"!forecast London", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			cmd, location, ok := ParseCommand(tt.body, names)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.location, location)
		})
	}
}

func TestUsage(t *testing.T) {
	assert.Equal(t, "usage: !wx <location>", Usage([]string{"wx", "weather"}))
	assert.Equal(t, "usage: !weather <location>", Usage(nil))
}
