package export

import (
	"fmt"
	"io"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "DataSets"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"ID",
	"Title",
	"Path",
	"Public",
	"Uploaded At",
	"Classes",
	"Properties",
	"Owner",
	"Contact",
}

// WriteDataSets renders rows as a one sheet workbook with upload times in loc
func WriteDataSets(w io.Writer, rows []model.ExportRow, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet instead of adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.ID,
			r.Title,
			r.Path,
			r.IsPublic,
			dto.FormatTime(r.UploadAt, loc),
			nullable(r.Classes.Int64, r.Classes.Valid),
			nullable(r.Properties.Int64, r.Properties.Valid),
			r.DisplayName,
			r.ContactURI,
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "B", "B", 32)
	_ = f.SetColWidth(SheetName, "C", "C", 36)
	_ = f.SetColWidth(SheetName, "E", "E", 26)
	_ = f.SetColWidth(SheetName, "H", "I", 30)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func nullable(v int64, valid bool) any {
	if !valid {
		return ""
	}
	return v
}
