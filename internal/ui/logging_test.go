package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgram struct {
	msgs chan tea.Msg
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{
		msgs: make(chan tea.Msg, 100),
	}
}

func (fp *fakeProgram) Send(msg tea.Msg) {
	fp.msgs <- msg
}

func TestTeaLogWriter_Write(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	tests := []struct {
		name  string
		input string
	}{
		{"Success_Empty", ""},
		{"Success_Line", "level=INFO msg=\"Pushing files\" files=3\n"},
		{"Success_Unicode", "path=/user/jürgen/notebooks/ノート.ipynb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := writer.Write([]byte(tt.input))
			require.NoError(t, err)
			require.Equal(t, len(tt.input), n)

			select {
			case got := <-fp.msgs:
				assert.Equal(t, LogMsg(tt.input), got)
			case <-time.After(300 * time.Millisecond):
				t.Fatalf("no log message forwarded for %s", tt.name)
			}
		})
	}
}

func TestTeaLogWriter_Stop(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)

	_, _ = writer.Write([]byte("before stop"))

	time.Sleep(50 * time.Millisecond)
	writer.Stop()
	time.Sleep(50 * time.Millisecond)

	n, err := writer.Write([]byte("after stop"))
	require.NoError(t, err)
	assert.Equal(t, len("after stop"), n)

	var got []string
drain:
	for {
		select {
		case m := <-fp.msgs:
			if lm, ok := m.(LogMsg); ok {
				got = append(got, string(lm))
			}
		case <-time.After(300 * time.Millisecond):
			break drain
		}
	}

	assert.Equal(t, []string{"before stop"}, got)
}
