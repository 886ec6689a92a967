package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op only",
			err:  &Error{Kind: KindConfig, Op: "resolve executable"},
			want: "CONFIG: resolve executable",
		},
		{
			name: "with path",
			err:  Lookup("region coordinate", "Obs_r1"),
			want: "LOOKUP: region coordinate (Obs_r1)",
		},
		{
			name: "with cause",
			err:  FileAccess("open setup file", "/tmp/a_setup.out", fs.ErrNotExist),
			want: "FILE_ACCESS: open setup file (/tmp/a_setup.out): file does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindHelpers_Wrapped(t *testing.T) {
	base := Config("resolve executable", "AMANZI_INSTALL_DIR", nil)
	wrapped := fmt.Errorf("run subtest: %w", base)

	assert.True(t, IsConfig(wrapped))
	assert.False(t, IsLookup(wrapped))
	assert.False(t, IsFileAccess(wrapped))
	assert.False(t, IsConfig(errors.New("plain")))
	assert.False(t, IsConfig(nil))
}

func TestUnwrap(t *testing.T) {
	err := FileAccess("open", "x", fs.ErrPermission)
	assert.ErrorIs(t, err, fs.ErrPermission)
}
