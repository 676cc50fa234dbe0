package logging

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeWriterParsesTag(t *testing.T) {
	path := initDebug(t, Config{})

	bw := NewBridgeWriter(CompMain)
	tests := []struct {
		input    string
		wantComp string
		wantMsg  string
	}{
		{"[PTY] resize failed\n", CompProcess, "resize failed"},
		{"[fsnotify] queue overflow\n", CompWatch, "queue overflow"},
		{"[other] something\n", "other", "something"},
		{"plain message without tag\n", CompMain, "plain message without tag"},
	}
	for _, tt := range tests {
		n, err := bw.Write([]byte(tt.input))
		require.NoError(t, err)
		assert.Equal(t, len(tt.input), n)
	}

	records := readRecords(t, path)
	for _, tt := range tests {
		r := findMsg(records, tt.wantMsg)
		require.NotNil(t, r, "missing %q", tt.wantMsg)
		assert.Equal(t, tt.wantComp, r["component"])
	}
}

func TestBridgeWriterWithStdLogger(t *testing.T) {
	path := initDebug(t, Config{})

	l := log.New(NewBridgeWriter(CompMain), "", log.LstdFlags|log.Lmicroseconds)
	l.Printf("[runner] loop ended")

	r := findMsg(readRecords(t, path), "loop ended")
	require.NotNil(t, r)
	assert.Equal(t, CompRunner, r["component"])
}

func TestStripLogTimestamp(t *testing.T) {
	assert.Equal(t, "msg", stripLogTimestamp("2024/01/02 15:04:05 msg"))
	assert.Equal(t, "msg", stripLogTimestamp("2024/01/02 15:04:05.123456 msg"))
	assert.Equal(t, "msg", stripLogTimestamp("15:04:05 msg"))
	assert.Equal(t, "msg", stripLogTimestamp("msg"))
}

func TestBridgeWriterSkipsBlank(t *testing.T) {
	bw := NewBridgeWriter(CompMain)
	n, err := bw.Write([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
