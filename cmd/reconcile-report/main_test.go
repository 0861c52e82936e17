package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"arwaeduc/internal/core"
	"arwaeduc/internal/report"
)

func TestPrintOverview(t *testing.T) {
	p := core.MonthPeriod(2024, 3, time.UTC)
	ov := core.MonthOverview{
		Period: p,
		Inscriptions: core.Analytics{Period: p, Count: 2, Total: core.Money{Cents: 130000}, ByCategory: map[string]core.Bucket{
			"SOUTIEN":   {Count: 1, Total: core.Money{Cents: 30000}},
			"FORMATION": {Count: 1, Total: core.Money{Cents: 100000}},
		}},
		Payments:       core.Analytics{Period: p, Count: 1, Total: core.Money{Cents: 35000}},
		Reconciliation: core.Reconciliation{Period: p, Status: core.UnderPaid, Difference: core.Money{Cents: 95000}},
	}

	var buf bytes.Buffer
	printOverview(&buf, "ArwaEduc", ov, report.NewFormatter("en", "DH"))
	out := buf.String()

	for _, want := range []string{"ArwaEduc", "2024-03", "SOUTIEN", "FORMATION", "UNDER_PAID", "950.00 DH"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
