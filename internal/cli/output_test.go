package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanzi/verification/internal/errs"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"suite": "point_2d"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	require.NoError(t, formatter.Error("CONFIG", "missing installation", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFIG", resp.Error.Code)
	assert.Equal(t, "missing installation", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	require.NoError(t, formatter.Error("LOOKUP", "region not found", map[string]string{"region": "Obs_r9"}))
	assert.Contains(t, buf.String(), "Error [LOOKUP]: region not found")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"config", errs.Config("resolve executable", "AMANZI_INSTALL_DIR", errors.New("unset")), ExitCommandError, "CONFIG"},
		{"file access", errs.FileAccess("read suite", "suite.yaml", errors.New("missing")), ExitCommandError, "FILE_ACCESS"},
		{"lookup", fmt.Errorf("table: %w", errs.Lookup("simulation subtest", "coarse")), ExitFailure, "LOOKUP"},
		{"plain", errors.New("boom"), ExitFailure, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf}

			err := formatter.Fail("run suite", tt.err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, buf.String(), "Error ["+tt.wantKind+"]")
		})
	}
}

func TestGetExitCode_Default(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
}

func TestOutputFormatter_Logger(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := &OutputFormatter{Writer: &bytes.Buffer{}, ErrWriter: buf}
	quiet.Logger().Debug("hidden")
	quiet.Logger().Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	verbose := &OutputFormatter{Writer: &bytes.Buffer{}, ErrWriter: buf, Verbose: true}
	verbose.Logger().Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestOutputFormatter_NotTerminal(t *testing.T) {
	assert.False(t, (&OutputFormatter{Writer: &bytes.Buffer{}}).IsTerminal())
}
