package pdh

import (
	"reflect"
	"testing"
	"unicode/utf16"
)

func encodeMultiSz(strs []string, finalTerminator bool) []uint16 {
	var buf []uint16
	for _, s := range strs {
		buf = append(buf, utf16.Encode([]rune(s))...)
		buf = append(buf, 0)
	}
	if finalTerminator {
		buf = append(buf, 0)
	}
	return buf
}

func TestMultiSzToStrings(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		buf  []uint16
		want []string
	}{
		{
			name: "two terminated strings",
			buf:  encodeMultiSz([]string{`\Process(app)\ID Process`, `\Process(app#1)\ID Process`}, true),
			want: []string{`\Process(app)\ID Process`, `\Process(app#1)\ID Process`},
		},
		{
			name: "single string",
			buf:  encodeMultiSz([]string{"abc"}, true),
			want: []string{"abc"},
		},
		{
			name: "missing final terminator",
			buf:  encodeMultiSz([]string{"abc", "def"}, false),
			want: []string{"abc", "def"},
		},
		{
			name: "unterminated trailing string",
			buf:  append(encodeMultiSz([]string{"abc"}, false), utf16.Encode([]rune("de"))...),
			want: []string{"abc", "de"},
		},
		{
			name: "empty buffer",
			buf:  nil,
			want: nil,
		},
		{
			name: "lone terminator",
			buf:  []uint16{0},
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := multiSzToStrings(tc.buf); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("multiSzToStrings() = %q, want %q", got, tc.want)
			}
		})
	}
}
