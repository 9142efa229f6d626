package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/utils"
)

func writeDonorWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"id", "name", "blood_type", "rh", "lat", "lon", "available", "last_donation_date"},
		{1, "Asha Rao", "O", "-", 12.9716, 77.5946, "yes", "2025-01-10"},
		{2, "Vikram Das", "AB", "+", 13.0827, 80.2707, "no", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("data/donors.xlsx"))
	assert.True(t, IsWorkbook("DONORS.XLSX"))
	assert.False(t, IsWorkbook("data/donors.csv"))
}

func TestReadRecords_ParsesDonors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "donors.xlsx")
	writeDonorWorkbook(t, path)

	records, err := ReadRecords(path, "")
	require.NoError(t, err)
	require.Len(t, records, 3)

	donors, errs := utils.NewCSVParser().ParseDonorRecords(records)
	require.Empty(t, errs)
	require.Len(t, donors, 2)
	assert.Equal(t, models.BloodTypeAB, donors[1].BloodType)
	assert.False(t, donors[1].Available)
	assert.Equal(t, models.NeverDonated, donors[1].LastDonation)
}

func TestReadRecordsFrom_Reader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "donors.xlsx")
	writeDonorWorkbook(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := ReadRecordsFrom(bytes.NewReader(data), "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", records[1][1])
}

func TestReadRecords_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "donors.xlsx")
	writeDonorWorkbook(t, path)

	_, err := ReadRecords(path, "Plasma")
	assert.Error(t, err)
}

func TestWriteMatchRows_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.xlsx")
	rows := []models.MatchRow{
		{DonorID: 4, Name: "Asha Rao", Blood: "O-", DistanceKm: 1.2, Score: 0.883, Explanation: "ABO O→O ✓"},
		{DonorID: 9, Name: "Ravi", Blood: "O+", DistanceKm: 40.5, Score: 0.71, Explanation: "ABO O→O ✓"},
	}

	require.NoError(t, WriteMatchRows(path, rows, ""))

	records, err := ReadRecords(path, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Rank", "Donor ID", "Name", "Blood", "Distance (km)", "Score", "Explanation"}, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "4", records[1][1])
	assert.Equal(t, "O-", records[1][3])
	assert.Equal(t, "Ravi", records[2][2])
}
