package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `validate:"required"`
	Level string `validate:"oneof=first-year second-year"`
}

func TestCheckRejectsMalformedRow(t *testing.T) {
	err := Check("students", "abc", row{Level: "tenth-year"})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.Contains(t, err.Error(), "decode students/abc")

	assert.NoError(t, Check("students", "abc", row{Name: "Ada", Level: "first-year"}))
}

func TestStringList(t *testing.T) {
	list, err := StringList("announcements", "1", nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	list, err = StringList("announcements", "1", []byte(`["a","b"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	_, err = StringList("announcements", "1", []byte(`{"a":1}`))
	assert.True(t, IsDecodeError(err))
}

func TestEncodeListNeverNull(t *testing.T) {
	assert.Equal(t, `[]`, string(EncodeList(nil)))
	assert.Equal(t, `["x"]`, string(EncodeList([]string{"x"})))
}
