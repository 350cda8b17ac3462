package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerName(t *testing.T) {
	assert.Equal(t, "webapp-blue", ContainerName("webapp", ColorBlue))
	assert.Equal(t, "webapp-green", ContainerName("webapp", ColorGreen))
	assert.Equal(t, "my-api-blue", ContainerName("my-api", ColorBlue))
}

func TestParseContainerName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantService string
		wantColor   Color
		wantOK      bool
	}{
		{"blue", "webapp-blue", "webapp", ColorBlue, true},
		{"green", "webapp-green", "webapp", ColorGreen, true},
		{"hyphenated service", "my-api-blue", "my-api", ColorBlue, true},
		{"unknown color", "webapp-red", "", "", false},
		{"no separator", "webapp", "", "", false},
		{"trailing separator", "webapp-", "", "", false},
		{"color only", "-blue", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, color, ok := ParseContainerName(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantService, service)
				assert.Equal(t, tt.wantColor, color)
			}
		})
	}
}
