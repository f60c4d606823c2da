package ratetable

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFiles(t *testing.T) {
	tables, err := LoadFiles(filepath.Join("testdata", "zips.csv"), filepath.Join("testdata", "tax_rates.csv"))
	require.NoError(t, err)

	zips, states := tables.Len()
	require.Equal(t, 4, zips)
	require.Equal(t, 3, states)

	state, ok := tables.StateForZip("94105")
	require.True(t, ok)
	require.Equal(t, "California", state)
	require.InDelta(t, 0.0885, tables.RateForState(state), 1e-12)

	state, ok = tables.StateForZip("00501")
	require.True(t, ok, "short zips are padded on load")
	require.Equal(t, "New York", state)

	state, ok = tables.StateForZip("10001-4321")
	require.True(t, ok)
	require.Equal(t, "New York", state)

	require.Zero(t, tables.RateForState("Montana"))
	require.Zero(t, tables.RateForState("Oregon"))

	_, ok = tables.StateForZip("99999")
	require.False(t, ok)
}

func TestReadZipStatesMissingColumn(t *testing.T) {
	_, err := ReadZipStates(strings.NewReader("postal,state\n10001,NY\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadTaxRatesRejectsGarbage(t *testing.T) {
	_, err := ReadTaxRates(strings.NewReader("State,Combined Rate\nTexas,eight\n"))
	require.Error(t, err)
}

func TestReadZipStatesHandlesBOM(t *testing.T) {
	zips, err := ReadZipStates(strings.NewReader("\ufeffzip,state_name\n73301,Texas\n"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"73301": "Texas"}, zips)
}

func TestParsePercent(t *testing.T) {
	cases := map[string]float64{
		"8.25%":  0.0825,
		" 6.0 %": 0.06,
		"7":      0.07,
		"":       0,
	}
	for in, want := range cases {
		got, err := ParsePercent(in)
		require.NoError(t, err, in)
		require.InDelta(t, want, got, 1e-12, in)
	}
	_, err := ParsePercent("-1%")
	require.Error(t, err)
}

func TestNormalizeZip(t *testing.T) {
	require.Equal(t, "00501", NormalizeZip("501"))
	require.Equal(t, "10001", NormalizeZip(" 10001-1234 "))
	require.Equal(t, "K1A0B1", NormalizeZip("K1A0B1"))
	require.Empty(t, NormalizeZip("  "))
}

func TestNilTablesAreEmpty(t *testing.T) {
	var tables *Tables
	_, ok := tables.StateForZip("10001")
	require.False(t, ok)
	require.Zero(t, tables.RateForState("New York"))
}
