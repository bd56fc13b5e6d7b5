package textscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, ""},
		{"no printable run", []byte{0x00, 0x01, 0xFF, 0x10, 0x7F}, ""},
		{"short runs dropped", []byte("abc\x00de\x01xyz"), ""},
		{"exact minimum", []byte("\x00abcd\x00"), "abcd"},
		{"several runs", []byte("Shell\x00\x00\x01Kill\xFFcmd.exe /c"), "Shell\nKill\ncmd.exe /c"},
		{"tabs and newlines split runs", []byte("Sub Foo()\r\n  Shell x\tEnd Sub"), "Sub Foo()\n  Shell x\nEnd Sub"},
		{"high bytes split runs", []byte("Attr\xe9ibute VB_Name"), "Attr\nibute VB_Name"},
		{"leading and trailing run", []byte("head\x00\x00tail"), "head\ntail"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReadable(tt.data))
		})
	}
}

func TestExtractReadable_Idempotent(t *testing.T) {
	inputs := [][]byte{
		[]byte("Shell\x00\x00\x01Kill\xFFcmd.exe /c"),
		[]byte("ab\x00abcd\x01\x02efghij\x00x"),
		{0x00, 0x01, 0x02},
		[]byte("plain text only"),
	}

	for _, in := range inputs {
		once := ExtractReadable(in)
		assert.Equal(t, once, ExtractReadable([]byte(once)))
	}
}

func TestRuns(t *testing.T) {
	assert.Nil(t, Runs(""))
	assert.Equal(t, []string{"Shell", "Kill"}, Runs("Shell\nKill"))
}
