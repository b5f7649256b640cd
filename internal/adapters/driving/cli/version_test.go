package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	tests := []struct {
		name string
		set  string
		want string
	}{
		{"dev by default", "", "proofscan version dev"},
		{"build version", "1.4.0", "proofscan version 1.4.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version = "dev"
			if tt.set != "" {
				SetVersion(tt.set)
			}

			out, err := executeCommand(t, "version")

			assert.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestVersionCmd_DoesNotLoadConfig(t *testing.T) {
	restore := withApplication(nil)
	defer restore()
	newApplication = failingApplication

	_, err := executeCommand(t, "version")
	assert.NoError(t, err)
	assert.Nil(t, application)
}
