package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMappingShape(t *testing.T) {
	normalized := Normalize(map[string]any{
		"12": "abc",
		"13": []any{float64(1), float64(2)},
		"14": map[string]any{"upload_id": float64(5)},
	})

	assert.Equal(t, map[int]any{
		12: "abc",
		13: []any{float64(1), float64(2)},
		14: map[string]any{"upload_id": float64(5)},
	}, normalized)
}

func TestNormalizeRecordShape(t *testing.T) {
	normalized := Normalize([]any{
		map[string]any{"question_id": float64(12), "value": "abc"},
		map[string]any{"question_id": float64(13), "value": []any{float64(1), float64(2)}},
		map[string]any{"question_id": float64(14), "upload_id": float64(5)},
	})

	assert.Equal(t, map[int]any{
		12: "abc",
		13: []any{float64(1), float64(2)},
		14: map[string]any{"upload_id": 5},
	}, normalized)
}

func TestNormalizeShapesAgree(t *testing.T) {
	mapping := Normalize(map[string]any{
		"10": "hello",
		"11": float64(3),
	})
	records := Normalize([]any{
		map[string]any{"question_id": float64(10), "value": "hello"},
		map[string]any{"question_id": float64(11), "value": float64(3)},
	})

	assert.Equal(t, mapping, records)
}

func TestNormalizeDropsUnusableIds(t *testing.T) {
	normalized := Normalize(map[string]any{
		"0":   "zero",
		"-3":  "negative",
		"abc": "not a number",
		"7":   "kept",
	})

	assert.Equal(t, map[int]any{7: "kept"}, normalized)
}

func TestNormalizeRecordShapeLastWins(t *testing.T) {
	normalized := Normalize([]any{
		map[string]any{"question_id": float64(5), "value": "first"},
		map[string]any{"question_id": float64(5), "value": "second"},
	})

	assert.Equal(t, map[int]any{5: "second"}, normalized)
}

func TestNormalizeUploadIdWinsOverValue(t *testing.T) {
	normalized := Normalize([]any{
		map[string]any{"question_id": float64(9), "value": "ignored", "upload_id": float64(4)},
	})

	assert.Equal(t, map[int]any{9: map[string]any{"upload_id": 4}}, normalized)
}

func TestNormalizeListWithoutQuestionIdIsNotRecordShape(t *testing.T) {
	// a bare list is neither shape: no mapping keys, no question_id records
	normalized := Normalize([]any{"a", "b"})
	assert.Empty(t, normalized)

	normalized = Normalize([]any{map[string]any{"value": "x"}})
	assert.Empty(t, normalized)
}

func TestNormalizeEmptyPayloads(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]any{}))
	assert.Empty(t, Normalize(map[string]any{}))
	assert.Empty(t, Normalize("garbage"))
}

func TestNormalizeStringIds(t *testing.T) {
	normalized := Normalize([]any{
		map[string]any{"question_id": "15", "value": "typed as string"},
	})

	assert.Equal(t, map[int]any{15: "typed as string"}, normalized)
}
