// Package report builds the tabular transaction export and its
// aggregation. The workbook uses the SpreadsheetML 2003 XML format,
// which Excel and LibreOffice open natively.
package report

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/walletapp/wallet-service/internal/models"
)

// Attachment metadata shared by the export endpoint and the email report
const (
	AttachmentFilename = "transacciones.xml"
	ContentType        = "application/vnd.ms-excel"
)

const spreadsheetNS = "urn:schemas-microsoft-com:office:spreadsheet"

// Summarize computes totals over a transaction list
func Summarize(txs []models.Transaction) models.Summary {
	var summary models.Summary
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome:
			summary.TotalIncome += tx.Amount
		case models.TypeExpense:
			summary.TotalExpense += tx.Amount
		}
	}
	summary.Balance = summary.TotalIncome - summary.TotalExpense
	return summary
}

// TypeLabel returns the localized label for a transaction type
func TypeLabel(txType string) string {
	if txType == models.TypeIncome {
		return "Ingreso"
	}
	return "Gasto"
}

// BuildWorkbook serializes the transactions into a spreadsheet: one
// header row, one row per transaction in the given order, a blank
// separator row, then four summary rows. Deterministic for the same
// input ordering.
func BuildWorkbook(txs []models.Transaction) ([]byte, error) {
	summary := Summarize(txs)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateProcInst("mso-application", `progid="Excel.Sheet"`)

	workbook := doc.CreateElement("Workbook")
	workbook.CreateAttr("xmlns", spreadsheetNS)
	workbook.CreateAttr("xmlns:ss", spreadsheetNS)

	worksheet := workbook.CreateElement("Worksheet")
	worksheet.CreateAttr("ss:Name", "Transacciones")
	table := worksheet.CreateElement("Table")

	appendRow(table,
		stringCell("Fecha"),
		stringCell("Tipo"),
		stringCell("Categoría"),
		stringCell("Descripción"),
		stringCell("Monto (USD)"),
	)

	for _, tx := range txs {
		appendRow(table,
			stringCell(tx.Date),
			stringCell(TypeLabel(tx.Type)),
			stringCell(tx.Category),
			stringCell(tx.Description),
			numberCell(tx.Amount),
		)
	}

	// Blank separator row, then the summary block
	table.CreateElement("Row")
	appendRow(table, stringCell("RESUMEN"))
	appendRow(table, stringCell("Total Ingresos"), stringCell(""), stringCell(""), stringCell(""), numberCell(summary.TotalIncome))
	appendRow(table, stringCell("Total Gastos"), stringCell(""), stringCell(""), stringCell(""), numberCell(summary.TotalExpense))
	appendRow(table, stringCell("Balance"), stringCell(""), stringCell(""), stringCell(""), numberCell(summary.Balance))

	doc.Indent(2)
	blob, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return blob, nil
}

type cell struct {
	dataType string
	value    string
}

func stringCell(value string) cell {
	return cell{dataType: "String", value: value}
}

func numberCell(value float64) cell {
	return cell{dataType: "Number", value: strconv.FormatFloat(value, 'f', -1, 64)}
}

func appendRow(table *etree.Element, cells ...cell) {
	row := table.CreateElement("Row")
	for _, c := range cells {
		data := row.CreateElement("Cell").CreateElement("Data")
		data.CreateAttr("ss:Type", c.dataType)
		data.SetText(c.value)
	}
}
