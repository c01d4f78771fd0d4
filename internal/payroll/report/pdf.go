package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gartstein/payroll/internal/payroll/ledger"
	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"ID", 18}, {"Nombre", 52}, {"Días", 14}, {"Diario", 26}, {"Ganado", 28},
	{"Adelantos", 28}, {"Préstamos", 28}, {"Pagos", 28}, {"Pendiente", 30},
}

// WritePDF renders r as a landscape A4 table followed by the month summary.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Reporte mensual %04d-%02d", r.Year, r.Month)))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 10)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 8, tr(col.title), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range r.Rows {
		cells := []string{
			row.EmployeeID,
			row.Name,
			strconv.Itoa(row.DaysWorked),
			ledger.FormatCurrency(row.DailyWage),
			ledger.FormatCurrency(row.Earned),
			ledger.FormatCurrency(row.Advances),
			ledger.FormatCurrency(row.Loans),
			ledger.FormatCurrency(row.Payments),
			ledger.FormatCurrency(row.Pending),
		}
		for i, cell := range cells {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(pdfColumns[i].width, 7, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Rows) == 0 {
		pdf.Cell(0, 8, tr("No hay registros para ese mes"))
		pdf.Ln(8)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Resumen")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	t := r.Totals
	for _, line := range []string{
		fmt.Sprintf("Empleados: %d", t.Employees),
		fmt.Sprintf("Días: %d", t.Days),
		"Ganado: " + ledger.FormatCurrency(t.Earned),
		"Adelantos: " + ledger.FormatCurrency(t.Advances),
		"Préstamos: " + ledger.FormatCurrency(t.Loans),
		"Pagos: " + ledger.FormatCurrency(t.Payments),
		"Pendiente: " + ledger.FormatCurrency(t.Pending),
	} {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}

	return pdf.Output(w)
}
