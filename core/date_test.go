package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Day Date `json:"day"`
	}

	tests := []struct {
		name    string
		data    string
		want    Date
		wantErr bool
	}{
		{name: "date", data: `{"day": "2025-09-01"}`, want: NewDate(2025, time.September, 1)},
		{name: "timestamp truncated", data: `{"day": "2025-09-01T23:30:00+00:00"}`, want: NewDate(2025, time.September, 1)},
		{name: "timestamp in another zone", data: `{"day": "2025-09-01T23:30:00-02:00"}`, want: NewDate(2025, time.September, 2)},
		{name: "null", data: `{"day": null}`},
		{name: "empty", data: `{"day": ""}`},
		{name: "invalid", data: `{"day": "01/09/2025"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := json.Unmarshal([]byte(tt.data), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(p.Day.Time), "got %s", p.Day)
		})
	}

	data, err := json.Marshal(payload{Day: NewDate(2025, time.January, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day": "2025-01-05"}`, string(data))

	data, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day": null}`, string(data))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, time.March, 4, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-04", d.String())

	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())

	assert.Error(t, d.Scan(42))

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestToday(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2025, time.June, 30, 23, 59, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	assert.Equal(t, "2025-06-30", Today().String())
	assert.True(t, NewDate(2025, time.June, 29).Before(Today()))
	assert.False(t, Today().After(Today()))
}
