package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Payload schema versions. Version 1 rows were written with snake_case keys
// before the client switched to camelCase; they are upgraded on read.
const (
	RecordSchemaV1      = 1
	RecordSchemaV2      = 2
	RecordSchemaCurrent = RecordSchemaV2
)

type AssessmentRecord struct {
	ID            int64
	UserID        int64
	RecordType    string
	SchemaVersion int
	Payload       string
	CreatedAt     time.Time
}

// Fields decodes the payload into canonical (v2) field names. ok is false for
// unknown schema versions and payloads that are not a JSON object.
func (r *AssessmentRecord) Fields() (fields map[string]any, ok bool) {
	if r == nil || r.RecordType == "" {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(r.Payload), &raw); err != nil || raw == nil {
		return nil, false
	}
	switch r.SchemaVersion {
	case RecordSchemaV2:
		return raw, true
	case RecordSchemaV1:
		return upgradeV1(raw), true
	}
	return nil, false
}

// upgradeV1 renames snake_case keys. A canonical key already present with a
// value wins over its legacy spelling; legacy keys are applied in sorted order.
func upgradeV1(raw map[string]any) map[string]any {
	upgraded := make(map[string]any, len(raw))
	var legacy []string
	for k, v := range raw {
		if SnakeToCamel(k) != k {
			legacy = append(legacy, k)
			continue
		}
		upgraded[k] = v
	}
	slices.Sort(legacy)
	for _, k := range legacy {
		camel := SnakeToCamel(k)
		if cur, ok := upgraded[camel]; ok && HasValue(cur) {
			continue
		}
		upgraded[camel] = raw[k]
	}
	return upgraded
}

func SnakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// HasValue reports whether a decoded payload value counts as filled in.
func HasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}
