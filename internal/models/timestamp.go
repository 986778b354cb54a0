package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// BackendTimeLayout 后端使用的时间格式 yyyy-MM-dd'T'HH:mm:ss.SSSZ
const BackendTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp 后端时间字段；空串与 null 视为零值
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(BackendTimeLayout))
}
