package progress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSession captures everything reported to it.
type recordingSession struct {
	started   int
	messages  []string
	completed int
}

func (s *recordingSession) Started()                { s.started++ }
func (s *recordingSession) Progress(message string) { s.messages = append(s.messages, message) }
func (s *recordingSession) Completed()              { s.completed++ }

func TestMeter_AnnouncesAtBoundaries(t *testing.T) {
	t.Parallel()

	session := &recordingSession{}
	meter := NewMeter(session, 4096)

	// 4 KiB of content consumed in uneven chunks.
	src := bytes.NewReader(make([]byte, 4096))
	reader := NewReader(src, meter.Update)

	for _, size := range []int{2, 560, 1000, 1600, 1024, 1024} {
		_, err := reader.Read(make([]byte, size))
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"1.5 KiB/4 KiB downloaded",
		"3 KiB/4 KiB downloaded",
		"4 KiB/4 KiB downloaded",
	}, session.messages)
}

func TestMeter_SilentBelowThreshold(t *testing.T) {
	t.Parallel()

	session := &recordingSession{}
	meter := NewMeter(session, 900)

	src := bytes.NewReader(make([]byte, 900))
	reader := NewReader(src, meter.Update)

	_, err := io.Copy(io.Discard, reader)
	require.NoError(t, err)

	assert.Empty(t, session.messages)
}

func TestMeter_UnknownTotalOmitsTotal(t *testing.T) {
	t.Parallel()

	session := &recordingSession{}
	meter := NewMeter(session, -1)

	meter.Update(2000)

	assert.Equal(t, []string{"1.5 KiB downloaded"}, session.messages)
}

func TestMeter_ThrottlesRepeatedUpdates(t *testing.T) {
	t.Parallel()

	session := &recordingSession{}
	meter := NewMeter(session, 65536)

	// Many tiny increments coalesce into few messages.
	for c := int64(1); c <= 4096; c++ {
		meter.Update(c)
	}

	assert.Equal(t, []string{
		"1 KiB/64 KiB downloaded",
		"2 KiB/64 KiB downloaded",
		"3 KiB/64 KiB downloaded",
		"4 KiB/64 KiB downloaded",
	}, session.messages)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1023, "1023 B"},
		{1024, "1 KiB"},
		{1100, "1.1 KiB"},
		{1536, "1.5 KiB"},
		{2560, "2.5 KiB"},
		{3072, "3 KiB"},
		{4096, "4 KiB"},
		{1048576, "1 MiB"},
		{1572864, "1.5 MiB"},
		{1073741824, "1 GiB"},
		{1099511627776, "1 TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, FormatBytes(tt.n))
		})
	}
}
