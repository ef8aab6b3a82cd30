package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echowise/internal/message"
)

const testConfig = `
logging:
  level: error
transports:
  http:
    enabled: false
device:
  backend: sim
  sim:
    wifi_enabled: false
    bluetooth_enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echowise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run executes the CLI with args and stdin and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "echowise dev\n", out)
}

func TestSay(t *testing.T) {
	cfg := writeConfig(t, testConfig)

	tests := []struct {
		name      string
		utterance []string
		want      string
	}{
		{"toggle", []string{"turn", "on", "wifi"}, "Turning on Wi-Fi...\n"},
		{"permission required", []string{"Turn", "ON", "Bluetooth"}, "Bluetooth permission is required. Grant it and try again.\n(requires permission: bluetooth_connect)\n"},
		{"unrecognized", []string{"sing", "me", "a", "song"}, "Command not recognized.\n"},
		{"open settings", []string{"open settings"}, "Opening settings...\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", append([]string{"--config", cfg, "say"}, tt.utterance...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSayJSON(t *testing.T) {
	cfg := writeConfig(t, testConfig)

	out, err := run(t, "", "--config", cfg, "say", "--json", "turn on the flashlight")
	require.NoError(t, err)

	var resp message.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "toggle_flashlight", resp.Intent)
	assert.True(t, resp.Enable)
	assert.Equal(t, "permission_required", resp.Outcome)
	assert.Equal(t, "camera", resp.Permission)
	assert.Equal(t, "flashlight_permission_required", resp.Key)
	assert.NotEmpty(t, resp.RequestID)
}

func TestSayRequiresUtterance(t *testing.T) {
	_, err := run(t, "", "say")
	require.Error(t, err)
}

func TestShell(t *testing.T) {
	cfg := writeConfig(t, testConfig)

	stdin := strings.Join([]string{
		"turn on the flashlight",
		"/grant camera",
		"turn on the flashlight",
		"",
		"turn on the flashlight",
		"/bogus",
		"/quit",
		"what time is it",
	}, "\n")

	out, err := run(t, stdin, "--config", cfg, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "Camera permission is required to use the flashlight.")
	assert.Contains(t, out, "grant: camera\n")
	assert.Contains(t, out, "Turning on the flashlight...\n")
	assert.Contains(t, out, "The flashlight is already on.\n")
	assert.Contains(t, out, `error: unknown command "/bogus"`)
	assert.NotContains(t, out, "The current time is", "input after /quit is ignored")
}

func TestShellState(t *testing.T) {
	cfg := writeConfig(t, testConfig)

	out, err := run(t, "/grant bluetooth_connect\nturn bluetooth off\n/state\n", "--config", cfg, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Turning off Bluetooth...\n")
	assert.Contains(t, out, `"bluetooth": false`)
	assert.Contains(t, out, `"bluetooth_connect"`)
}

func TestUnknownKeywordIntent(t *testing.T) {
	cfg := writeConfig(t, testConfig+`
matching:
  keywords:
    make_coffee: ["brew"]
`)
	_, err := run(t, "", "--config", cfg, "say", "brew")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "make_coffee")
}

func TestShellSkipsOverlongLines(t *testing.T) {
	cfg := writeConfig(t, testConfig)

	long := strings.Repeat("turn on wifi ", maxLineBytes/10)
	stdin := long + "\nopen settings\n"

	out, err := run(t, stdin, "--config", cfg, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")
	assert.NotContains(t, out, "Turning on Wi-Fi...")
	assert.Contains(t, out, "Opening settings...\n")
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("short\n"+strings.Repeat("x", 40)+"\nlast"), 16)

	line, tooLong, err := readLine(r, 32)
	require.NoError(t, err)
	assert.Equal(t, "short", line)
	assert.False(t, tooLong)

	line, tooLong, err = readLine(r, 32)
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.True(t, tooLong)

	line, tooLong, err = readLine(r, 32)
	require.NoError(t, err)
	assert.Equal(t, "last", line)
	assert.False(t, tooLong)

	_, _, err = readLine(r, 32)
	assert.ErrorIs(t, err, io.EOF)
}
