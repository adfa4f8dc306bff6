package biz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nilm-chat/internal/model"
)

func TestFormatContextSingleDevice(t *testing.T) {
	listing, summary, err := FormatContext([]model.DeviceSummary{
		{ClusterID: 1, Name: "Refrigerator", AvgPower: 120.5, AvgTHD: 4.2},
	})
	require.NoError(t, err)
	assert.Equal(t, "- Refrigerator (Cluster 1): 120.5W, THD: 4.2%", listing)
	assert.Equal(t, "Total power: 120.5W\nHighest consumer: Refrigerator (120.5W)", summary)
}

func TestFormatContextPeakIsFirstMaximum(t *testing.T) {
	listing, summary, err := FormatContext([]model.DeviceSummary{
		{ClusterID: 0, Name: "Background", AvgPower: 12.25, AvgTHD: 2},
		{ClusterID: 4, Name: "Kettle", AvgPower: 1500, AvgTHD: 8.04},
		{ClusterID: 6, Name: "Water heating", AvgPower: 1500, AvgTHD: 3.16},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"- Background (Cluster 0): 12.25W, THD: 2.0%\n"+
			"- Kettle (Cluster 4): 1500.0W, THD: 8.0%\n"+
			"- Water heating (Cluster 6): 1500.0W, THD: 3.2%",
		listing)
	assert.Equal(t, "Total power: 3012.2W\nHighest consumer: Kettle (1500.0W)", summary)
}

func TestFormatContextEmpty(t *testing.T) {
	_, _, err := FormatContext(nil)
	assert.ErrorIs(t, err, errNoDevices)
}

func TestFormatPower(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{120.5, "120.5"},
		{100, "100.0"},
		{0, "0.0"},
		{-3, "-3.0"},
		{0.1, "0.1"},
		{1234.57, "1234.57"},
		{1e16, "1e+16"},
		{0.00001, "1e-05"},
		{math.NaN(), "nan"},
		{math.Inf(1), "inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPower(tt.in), "formatPower(%v)", tt.in)
	}
}
