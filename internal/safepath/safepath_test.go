package safepath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Azzadd/fetchmeter/core"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "simple file", path: "artifact.bin"},
		{name: "nested path", path: "out/nightly/artifact.bin"},
		{name: "dot prefix", path: "./out/artifact.bin"},
		{name: "single dot component", path: "out/./artifact.bin"},
		{name: "empty path", path: ""},
		{name: "double dot not as component", path: "tool..bin"},
		{name: "triple dot component", path: ".../artifact.bin"},
		{name: "parent traversal at start", path: "../escape.bin", wantErr: true},
		{name: "parent traversal in middle", path: "out/../../escape.bin", wantErr: true},
		{name: "parent traversal at end", path: "out/..", wantErr: true},
		{name: "absolute unix path", path: "/etc/passwd", wantErr: true},
		{name: "leading backslash", path: "\\escape.bin", wantErr: true},
		{name: "backslash traversal", path: "out\\..\\escape.bin", wantErr: true},
		{name: "mixed separator traversal", path: "out/..\\escape.bin", wantErr: true},
		{name: "windows drive letter", path: "C:\\Windows\\System32", wantErr: true},
		{name: "windows drive lowercase", path: "c:\\temp\\file.txt", wantErr: true},
		{name: "windows drive relative", path: "C:relative\\path", wantErr: true},
		{name: "windows UNC path", path: "\\\\server\\share\\file.txt", wantErr: true},
		{name: "null byte", path: "artifact\x00.bin", wantErr: true},
		{name: "null byte at end", path: "artifact.bin\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Check(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUnsafePath, "Check(%q)", tt.path)
			} else {
				assert.NoError(t, err, "Check(%q)", tt.path)
			}
		})
	}
}
