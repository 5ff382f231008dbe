package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestParseItemCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfcode,name,category,make,unit,unit_price\n" +
		"IT-1,Bolt,Hardware,Acme,box,12.50\n" +
		",,,,,\n" +
		"IT-2,,Hardware,,pcs,1\n" +
		"IT-3,Nut,Hardware,,pcs,abc\n" +
		",Washer,Hardware,,,\n")

	rows, rowErrors, err := ParseItemCSV(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "IT-1", rows[0].Code)
	assert.Equal(t, "Acme", rows[0].Make)
	assert.True(t, rows[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "Washer", rows[1].Name)
	assert.True(t, rows[1].UnitPrice.IsZero())

	require.Len(t, rowErrors, 2)
	assert.Equal(t, 4, rowErrors[0].Row)
	assert.Equal(t, 5, rowErrors[1].Row)
}

func TestParseItemCSV_MissingColumns(t *testing.T) {
	_, _, err := ParseItemCSV([]byte("code,name\nIT-1,Bolt\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	_, _, err = ParseItemCSV([]byte(""))
	assert.Error(t, err)
}

func TestParseItemCSV_GBK(t *testing.T) {
	utf8Text := "name,category,unit\n螺丝,五金,盒\n"
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(utf8Text))
	require.NoError(t, err)

	rows, rowErrors, err := ParseItemCSV(gbk)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 1)
	assert.Equal(t, "螺丝", rows[0].Name)
	assert.Equal(t, "五金", rows[0].Category)
}

func TestParseItemXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Category", "Unit_Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Cable", "Electrical", "4.25"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, rowErrors, err := ParseItemXLSX(&buf)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 1)
	assert.Equal(t, "Electrical", rows[0].Category)
	assert.True(t, rows[0].UnitPrice.Equal(decimal.RequireFromString("4.25")))
}
