// Package sheet はActivityRecordをスプレッドシート（xlsx）のバイト列に変換する。
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/energylog/internal/model"
)

// SheetName は出力するワークシート名。
const SheetName = "Sheet1"


// Header は出力ファイルのヘッダー行。
var Header = []string{"Username", "Electricity_kWh", "Diesel_Litre"}

// FileName はユーザーごとのアップロードファイル名を返す。
func FileName(username string) string {
	return username + "_data.xlsx"
}

// Encode はヘッダー行と1行のデータ行からなるワークブックをメモリ上で生成する。
// 一時ファイルは使用しない。
func Encode(rec model.ActivityRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	row := []interface{}{rec.Username, rec.ElectricityKWh, rec.DieselLitre}
	if err := f.SetSheetRow(SheetName, "A2", &row); err != nil {
		return nil, fmt.Errorf("failed to write data row: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode はEncodeで生成したワークブックからActivityRecordを読み戻す。
func Decode(data []byte) (model.ActivityRecord, error) {
	var rec model.ActivityRecord

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return rec, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return rec, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) != 2 {
		return rec, fmt.Errorf("expected header and one data row, got %d rows", len(rows))
	}

	for i, h := range Header {
		if i >= len(rows[0]) || rows[0][i] != h {
			return rec, fmt.Errorf("unexpected header: %v", rows[0])
		}
	}

	row := rows[1]
	if len(row) != len(Header) {
		return rec, errors.New("data row has wrong number of columns")
	}

	rec.Username = row[0]
	if rec.ElectricityKWh, err = strconv.ParseFloat(row[1], 64); err != nil {
		return rec, fmt.Errorf("invalid %s: %w", Header[1], err)
	}
	if rec.DieselLitre, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("invalid %s: %w", Header[2], err)
	}
	return rec, nil
}
