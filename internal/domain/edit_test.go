package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SIRI-bit-tech/FSIDE/internal/domain"
)

func TestIsValidOperationType(t *testing.T) {
	for _, op := range []string{domain.OpInsert, domain.OpDelete, domain.OpReplace, domain.OpCursor} {
		assert.True(t, domain.IsValidOperationType(op), op)
	}
	assert.False(t, domain.IsValidOperationType("merge"))
	assert.False(t, domain.IsValidOperationType(""))
	assert.False(t, domain.IsValidOperationType("INSERT"), "操作类型区分大小写")
}

func TestRealtimeEdit_ParsePosition(t *testing.T) {
	edit := &domain.RealtimeEdit{
		Position: datatypes.JSON(`{"line":12,"column":4,"selection_end":30}`),
	}

	pos, err := edit.ParsePosition()
	require.NoError(t, err)
	assert.Equal(t, 12, pos.Line)
	assert.Equal(t, 4, pos.Column)
	// 未知字段保留在 Extra 中，不丢失
	assert.Equal(t, float64(30), pos.Extra["selection_end"])
}

func TestRealtimeEdit_ParsePosition_Empty(t *testing.T) {
	edit := &domain.RealtimeEdit{}

	pos, err := edit.ParsePosition()
	require.NoError(t, err)
	assert.Zero(t, pos.Line)
	assert.Zero(t, pos.Column)
	assert.Nil(t, pos.Extra)
}

func TestRealtimeEdit_ParsePosition_Malformed(t *testing.T) {
	edit := &domain.RealtimeEdit{Position: datatypes.JSON(`{broken`)}

	_, err := edit.ParsePosition()
	assert.Error(t, err)
}
