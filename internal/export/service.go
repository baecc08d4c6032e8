// Package export turns stored task results into XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Service produces XLSX bytes from a task's stored result.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// InvoicesXLSX renders one row per extracted invoice. The input is the value
// GetResult returns: either the ordered per-range list or a single error
// object; failed ranges become rows with the error in the notes column.
func (s *Service) InvoicesXLSX(result any) ([]byte, error) {
	start := time.Now()

	records, err := asRecords(result)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice Number",
		"Issue Date",
		"Due Date",
		"Customer",
		"Items",
		"Subtotal",
		"Tax Total",
		"Total Amount",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if errMsg, ok := rec["error"].(string); ok {
			note := errMsg
			if pr, ok := rec["page_range"]; ok {
				note = fmt.Sprintf("%s (pages %s)", errMsg, pageRangeLabel(pr))
			}
			write(9, note)
			row++
			continue
		}

		write(1, stringField(rec, "invoice_number"))
		write(2, stringField(rec, "issue_date"))
		write(3, stringField(rec, "due_date"))
		write(4, stringField(rec, "customer_name"))
		write(5, itemCount(rec))
		if v, ok := numberField(rec, "subtotal"); ok {
			write(6, v)
		}
		write(7, taxTotal(rec))
		if v, ok := numberField(rec, "total_amount"); ok {
			write(8, v)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "C", 12)
	_ = f.SetColWidth(sheet, "D", "D", 28)
	_ = f.SetColWidth(sheet, "F", "H", 14)
	_ = f.SetColWidth(sheet, "I", "I", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// asRecords normalizes the two stored result shapes into a record list.
func asRecords(result any) ([]map[string]any, error) {
	switch v := result.(type) {
	case []any:
		records := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("unexpected result element %T", item)
			}
			records = append(records, m)
		}
		return records, nil
	case []map[string]any:
		return v, nil
	case map[string]any:
		return []map[string]any{v}, nil
	case nil:
		return nil, fmt.Errorf("no result to export")
	default:
		return nil, fmt.Errorf("unexpected result type %T", result)
	}
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return s
}

func numberField(rec map[string]any, key string) (float64, bool) {
	f, ok := rec[key].(float64)
	return f, ok
}

func itemCount(rec map[string]any) int {
	items, _ := rec["items"].([]any)
	return len(items)
}

func taxTotal(rec map[string]any) float64 {
	taxes, _ := rec["taxes"].([]any)
	var total float64
	for _, t := range taxes {
		m, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if amt, ok := m["tax_amount"].(float64); ok {
			total += amt
		}
	}
	return total
}

func pageRangeLabel(v any) string {
	switch pr := v.(type) {
	case []any:
		parts := make([]string, 0, len(pr))
		for _, p := range pr {
			parts = append(parts, fmt.Sprintf("%v", p))
		}
		return strings.Join(parts, "-")
	case [2]int:
		return fmt.Sprintf("%d-%d", pr[0], pr[1])
	default:
		return fmt.Sprintf("%v", v)
	}
}
