package httpapi

import (
	"fmt"
	"strings"

	"kasumkm/backend/internal/domain"
)

// reportToCSV renders the aggregate report in the same section,key,value
// shape the dashboard export uses.
func reportToCSV(report domain.Report) string {
	lines := []string{
		"section,key,value",
	}
	for _, row := range report.ChartData {
		lines = append(lines, fmt.Sprintf("monthly,%s_income,%d", row.Month, row.Income))
		lines = append(lines, fmt.Sprintf("monthly,%s_expense,%d", row.Month, row.Expense))
	}
	for _, row := range report.CategoryData {
		lines = append(lines, fmt.Sprintf("category,%s,%d", csvEscape(row.Name), row.Value))
	}
	return strings.Join(lines, "\n") + "\n"
}

func csvEscape(value string) string {
	if !strings.ContainsAny(value, ",\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
