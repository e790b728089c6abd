package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{name: "single string", input: "m1", want: []string{"m1"}},
		{name: "array", input: []any{"m1", "m2", "m3"}, want: []string{"m1", "m2", "m3"}},
		{name: "string slice", input: []string{"m1", "m2"}, want: []string{"m1", "m2"}},
		{name: "nil", input: nil, wantErr: "messageIds is required"},
		{name: "empty string", input: "", wantErr: "messageIds cannot be empty"},
		{name: "empty array", input: []any{}, wantErr: "messageIds cannot be empty"},
		{name: "non-string item", input: []any{"m1", 2}, wantErr: "messageIds[1] must be a string"},
		{name: "empty item", input: []any{"m1", ""}, wantErr: "messageIds[1] cannot be empty"},
		{name: "wrong type", input: 42, wantErr: "must be a string or array of strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "messageIds")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLimit(t *testing.T) {
	ids := []string{"a", "b", "c"}

	got, dropped := Limit(ids, 2)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, dropped)

	got, dropped = Limit(ids, 3)
	assert.Equal(t, ids, got)
	assert.False(t, dropped)

	got, dropped = Limit(ids, 0)
	assert.Equal(t, ids, got)
	assert.False(t, dropped)
}
