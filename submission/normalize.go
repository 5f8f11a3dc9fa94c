package submission

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize reconciles the two accepted answer payload shapes into one
// mapping from question id to raw answer value.
//
// Shape A: {"12":"abc","13":[1,2],"14":{"upload_id":5}}
// Shape B: [{"question_id":12,"value":"abc"},{"question_id":14,"upload_id":5}]
//
// A payload is treated as shape B when it is a non-empty list whose first
// element is a record carrying a question_id key; anything else falls back
// to shape A. Entries with non-positive or unparseable question ids are
// dropped. In shape B a later record for the same question wins, and an
// upload_id key takes precedence over value.
func Normalize(answers any) map[int]any {
	normalized := map[int]any{}

	if records, ok := asRecordList(answers); ok {
		for _, record := range records {
			questionID := toInt(record["question_id"])
			if questionID <= 0 {
				continue
			}
			if uploadID, found := record["upload_id"]; found {
				normalized[questionID] = map[string]any{"upload_id": toInt(uploadID)}
			} else {
				normalized[questionID] = record["value"]
			}
		}
		return normalized
	}

	if mapping, ok := answers.(map[string]any); ok {
		for key, value := range mapping {
			questionID := toInt(key)
			if questionID <= 0 {
				continue
			}
			normalized[questionID] = value
		}
	}

	return normalized
}

func asRecordList(answers any) ([]map[string]any, bool) {
	list, ok := answers.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return nil, false
	}
	if _, found := first["question_id"]; !found {
		return nil, false
	}

	records := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if record, ok := entry.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records, true
}

// toInt coerces the id representations JSON decoding can produce.
// Anything non-numeric coerces to 0.
func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
