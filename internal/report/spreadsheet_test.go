package report

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletapp/wallet-service/internal/models"
)

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{Type: models.TypeIncome, Amount: 100.5, Category: "salary", Description: "march pay", Date: "2024-03-01"},
		{Type: models.TypeExpense, Amount: 40, Category: "food", Description: "groceries", Date: "2024-02-15"},
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, models.Summary{}, Summarize(nil))

	got := Summarize([]models.Transaction{
		{Type: models.TypeIncome, Amount: 100},
		{Type: models.TypeExpense, Amount: 40},
	})
	assert.Equal(t, models.Summary{TotalIncome: 100, TotalExpense: 40, Balance: 60}, got)
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Ingreso", TypeLabel(models.TypeIncome))
	assert.Equal(t, "Gasto", TypeLabel(models.TypeExpense))
}

func parseRows(t *testing.T, blob []byte) []*etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(blob))
	rows := doc.FindElements("//Worksheet/Table/Row")
	return rows
}

func TestBuildWorkbookRowCount(t *testing.T) {
	txs := sampleTransactions()
	blob, err := BuildWorkbook(txs)
	require.NoError(t, err)

	// header + transactions + blank separator + 4 summary rows
	rows := parseRows(t, blob)
	assert.Len(t, rows, len(txs)+6)
}

func TestBuildWorkbookEmpty(t *testing.T) {
	blob, err := BuildWorkbook(nil)
	require.NoError(t, err)

	rows := parseRows(t, blob)
	require.Len(t, rows, 6)

	// Summary totals must all be zero
	last := rows[len(rows)-1]
	cells := last.FindElements("./Cell/Data")
	require.NotEmpty(t, cells)
	assert.Equal(t, "Balance", cells[0].Text())
	assert.Equal(t, "0", cells[len(cells)-1].Text())
}

func TestBuildWorkbookContent(t *testing.T) {
	blob, err := BuildWorkbook(sampleTransactions())
	require.NoError(t, err)
	rows := parseRows(t, blob)

	header := rows[0].FindElements("./Cell/Data")
	require.Len(t, header, 5)
	assert.Equal(t, "Fecha", header[0].Text())
	assert.Equal(t, "Monto (USD)", header[4].Text())

	first := rows[1].FindElements("./Cell/Data")
	require.Len(t, first, 5)
	assert.Equal(t, "2024-03-01", first[0].Text())
	assert.Equal(t, "Ingreso", first[1].Text())
	assert.Equal(t, "100.5", first[4].Text())
	assert.Equal(t, "Number", first[4].SelectAttrValue("ss:Type", ""))

	// Summary block: RESUMEN label then three totals
	resumen := rows[4].FindElements("./Cell/Data")
	require.Len(t, resumen, 1)
	assert.Equal(t, "RESUMEN", resumen[0].Text())

	income := rows[5].FindElements("./Cell/Data")
	require.Len(t, income, 5)
	assert.Equal(t, "Total Ingresos", income[0].Text())
	assert.Equal(t, "100.5", income[4].Text())
}

func TestBuildWorkbookDeterministic(t *testing.T) {
	txs := sampleTransactions()

	first, err := BuildWorkbook(txs)
	require.NoError(t, err)
	second, err := BuildWorkbook(txs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
