package iocli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStdioFrom(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

func TestReadInput(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStdioFrom(strings.NewReader("  user input \nnext\n"), &out)

	result, err := stdio.ReadInput("Prompt: ")
	require.NoError(t, err)
	assert.Equal(t, "user input", result)
	assert.Equal(t, "Prompt: ", out.String())

	// последняя строка без перевода строки
	stdio = NewStdioFrom(strings.NewReader("tail"), &out)
	result, err = stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "tail", result)

	_, err = stdio.ReadInput("")
	assert.Error(t, err)
}

func TestReadPassword_NotTerminal(t *testing.T) {
	stdio := NewStdioFrom(strings.NewReader(" secret with spaces \n"), &bytes.Buffer{})

	pw, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, " secret with spaces ", pw)
}

func TestPasswordPrompt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "password", input: "hunter2\n", want: "hunter2", wantOK: true},
		{name: "blank is no password", input: "   \n", wantOK: false},
		{name: "eof is no password", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdio := NewStdioFrom(strings.NewReader(tt.input), &bytes.Buffer{})
			pw, ok, err := PasswordPrompt(stdio, "Password: ")(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, pw)
		})
	}
}

func TestPasswordPrompt_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdio := NewStdioFrom(strings.NewReader("hunter2\n"), &bytes.Buffer{})
	_, ok, err := PasswordPrompt(stdio, "")(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestNewPassword(t *testing.T) {
	stdio := NewStdioFrom(strings.NewReader("hunter2\nhunter2\n"), &bytes.Buffer{})
	pw, ok, err := NewPassword(stdio)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", pw)

	stdio = NewStdioFrom(strings.NewReader("hunter2\nhunter3\n"), &bytes.Buffer{})
	_, _, err = NewPassword(stdio)
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	stdio = NewStdioFrom(strings.NewReader("\n"), &bytes.Buffer{})
	_, ok, err = NewPassword(stdio)
	require.NoError(t, err)
	assert.False(t, ok)
}
