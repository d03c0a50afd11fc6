package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"standupbot/internal/domain"
	"standupbot/internal/stream"
)

const historySheet = "History"

// WriteHistoryXLSX exports saved standups, one row each, with the generated
// sections split into columns.
func WriteHistoryXLSX(path string, records []domain.SavedStandup) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	headers := []string{
		"Created At",
		"User",
		"Yesterday Date",
		"Today Date",
		"Yesterday",
		"Today",
		"Blockers",
		"Timezone",
		"Public Holidays",
		"ID",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(historySheet, cell, header)
		f.SetCellStyle(historySheet, cell, cell, headerStyle)
	}

	for i, rec := range records {
		row := i + 2
		parsed := stream.ParseFinal(rec.Output)
		values := []any{
			rec.CreatedAt.UTC().Format("2006-01-02 15:04"),
			rec.UserEmail,
			parsed.Meta.YesterdayDate,
			parsed.Meta.TodayDate,
			strings.Join(stream.Bullets(parsed.Yesterday.Text), "\n"),
			strings.Join(stream.Bullets(parsed.Today.Text), "\n"),
			strings.Join(stream.Bullets(parsed.Blockers.Text), "\n"),
			rec.Timezone,
			strings.Join(rec.PublicHolidays, ", "),
			rec.ID,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(historySheet, cell, v)
		}
		first, _ := excelize.CoordinatesToCellName(5, row)
		last, _ := excelize.CoordinatesToCellName(7, row)
		f.SetCellStyle(historySheet, first, last, wrapStyle)
	}

	f.SetColWidth(historySheet, "A", "A", 18)
	f.SetColWidth(historySheet, "B", "B", 28)
	f.SetColWidth(historySheet, "C", "D", 14)
	f.SetColWidth(historySheet, "E", "G", 50)
	f.SetColWidth(historySheet, "H", "I", 20)
	f.SetColWidth(historySheet, "J", "J", 38)

	f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}
	return nil
}
