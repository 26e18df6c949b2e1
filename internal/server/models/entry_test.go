package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_MarshalJSON(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	e := &Entry{
		ID:     3,
		UserID: 11,
		Fields: FieldSet{
			"exporter_name": "Acme",
			"date":          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			"value":         12.5,
		},
		Attachment: &Attachment{URL: "http://img/1.jpg", Handle: "entries/1.jpg"},
		CreatedAt:  created,
	}

	t.Run("without creator", func(t *testing.T) {
		b, err := json.Marshal(e)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		assert.Equal(t, float64(3), m["id"])
		assert.Equal(t, "Acme", m["exporter_name"])
		assert.Equal(t, "2024-05-01", m["date"])
		assert.Equal(t, 12.5, m["value"])
		assert.Equal(t, "http://img/1.jpg", m["image_path"])
		assert.Contains(t, m, "remarks")
		assert.Nil(t, m["remarks"])
		assert.NotContains(t, m, "user_id")
		assert.NotContains(t, m, "created_by_name")
		assert.NotContains(t, m, "created_by_email")
		assert.NotContains(t, string(b), "entries/1.jpg")
	})

	t.Run("with creator", func(t *testing.T) {
		withCreator := *e
		withCreator.Creator = &Creator{Name: "Ann", Email: "ann@example.com"}
		withCreator.Attachment = nil

		b, err := json.Marshal(&withCreator)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		assert.Equal(t, float64(11), m["user_id"])
		assert.Equal(t, "Ann", m["created_by_name"])
		assert.Equal(t, "ann@example.com", m["created_by_email"])
		assert.Nil(t, m["image_path"])
	})
}
