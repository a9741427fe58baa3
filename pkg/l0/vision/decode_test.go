package vision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier(t *testing.T) {
	c := Classifier{Sentinel: []byte("ERROR")}
	testCases := []struct {
		line   string
		expect Class
	}{
		{"ERROR", ClassProtocolError},
		{"ERROR: no target", ClassProtocolError},
		{"ERROR\r", ClassProtocolError},
		{"error", ClassPayload},
		{"ERR", ClassPayload},
		{" ERROR", ClassPayload},
		{"1,2,3", ClassPayload},
		{"", ClassPayload},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			require.Equal(t, tc.expect, c.Classify([]byte(tc.line)))
		})
	}
}

func TestDecoder(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		capacity int
		expect   []int
	}{
		{"simple", "1,2,3", 20, []int{1, 2, 3}},
		{"non numeric token", "10,x,30", 20, []int{10, 0, 30}},
		{"signed", "-5,+7,0", 20, []int{-5, 7, 0}},
		{"trailing junk", "12abc,4\r", 20, []int{12, 4}},
		{"leading space", " 8, 9", 20, []int{8, 9}},
		{"empty tokens skipped", "1,,2,", 20, []int{1, 2}},
		{"blank token", "1, ,2", 20, []int{1, 0, 2}},
		{"empty line", "", 20, []int{}},
		{"truncated", "1,2,3,4,5", 3, []int{1, 2, 3}},
		{"exact capacity", "1,2,3", 3, []int{1, 2, 3}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values := NewValues(tc.capacity)
			n := Decoder{Separator: ','}.Decode([]byte(tc.line), values)
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.expect, values.Slice())
			require.LessOrEqual(t, values.Len(), values.Cap())
		})
	}
}

func TestDecoderReplacesValues(t *testing.T) {
	values := NewValues(4)
	d := Decoder{Separator: ','}
	d.Decode([]byte("1,2,3,4"), values)
	d.Decode([]byte("9"), values)
	require.Equal(t, []int{9}, values.Slice())
}

func TestAtoi(t *testing.T) {
	testCases := []struct {
		in     string
		expect int
	}{
		{"0", 0},
		{"42", 42},
		{"-42", -42},
		{"+42", 42},
		{"\t 17", 17},
		{"17 ", 17},
		{"abc", 0},
		{"-", 0},
		{"", 0},
		{"3.9", 3},
		{"99999999999", math.MaxInt32},
		{"-99999999999", math.MinInt32},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.expect, Atoi([]byte(tc.in)))
		})
	}
}

func TestValues(t *testing.T) {
	v := NewValues(2)
	require.True(t, v.Append(1))
	require.True(t, v.Append(2))
	require.False(t, v.Append(3))
	require.True(t, v.Full())
	require.Equal(t, []int{1, 2}, v.Slice())

	cp := v.Copy()
	v.Reset()
	v.Append(5)
	require.Equal(t, []int{1, 2}, cp)
	require.Equal(t, []int{5}, v.Slice())
}
