package services

import (
	"context"
	"testing"

	"arwaeduc/internal/core"
)

func groups(counts ...int) []core.Group {
	out := make([]core.Group, len(counts))
	for i, c := range counts {
		out[i] = core.Group{ID: string(rune('a' + i)), StudentCount: c}
	}
	return out
}

func TestTeacherExpense(t *testing.T) {
	calc := NewPayrollCalculator(DefaultPayrollConfig())
	ctx := context.Background()

	tests := []struct {
		name         string
		teacher      core.Teacher
		wantExpense  int64
		wantHours    int
		wantStudents int
		wantRevenue  int64
		wantUnknown  bool
	}{
		{
			name:        "hourly three groups",
			teacher:     core.Teacher{ID: "t1", PaymentType: core.PayHourly, HourlyRate: cents(50), Groups: groups(4, 6, 8)},
			wantExpense: 120000, wantHours: 24, wantStudents: 18,
		},
		{
			name:        "percentage fifteen students",
			teacher:     core.Teacher{ID: "t2", PaymentType: core.PayPercentage, Commission: 10, Groups: groups(10, 5)},
			wantExpense: 75000, wantStudents: 15, wantRevenue: 750000,
		},
		{
			name:        "fixed",
			teacher:     core.Teacher{ID: "t3", PaymentType: core.PayFixed, HourlyRate: cents(3000), Groups: groups(12)},
			wantExpense: 300000, wantStudents: 12,
		},
		{
			name:        "percentage rounds to the cent",
			teacher:     core.Teacher{ID: "t4", PaymentType: core.PayPercentage, Commission: 0.001, Groups: groups(1)},
			wantExpense: 1, wantStudents: 1, wantRevenue: 50000,
		},
		{
			name:        "hourly without groups",
			teacher:     core.Teacher{ID: "t5", PaymentType: core.PayHourly, HourlyRate: cents(50)},
			wantExpense: 0,
		},
		{
			name:        "unknown type",
			teacher:     core.Teacher{ID: "t6", PaymentType: "COMMISSION", HourlyRate: cents(50), Groups: groups(3)},
			wantExpense: 0, wantStudents: 3, wantUnknown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := calc.TeacherExpense(ctx, tt.teacher)
			if line.Expense.Cents != tt.wantExpense {
				t.Errorf("Expense = %d, want %d", line.Expense.Cents, tt.wantExpense)
			}
			if line.Hours != tt.wantHours {
				t.Errorf("Hours = %d, want %d", line.Hours, tt.wantHours)
			}
			if line.Students != tt.wantStudents {
				t.Errorf("Students = %d, want %d", line.Students, tt.wantStudents)
			}
			if line.Revenue.Cents != tt.wantRevenue {
				t.Errorf("Revenue = %d, want %d", line.Revenue.Cents, tt.wantRevenue)
			}
			if line.Unknown != tt.wantUnknown {
				t.Errorf("Unknown = %v, want %v", line.Unknown, tt.wantUnknown)
			}
		})
	}
}

func TestMonthlyPayrollTotal(t *testing.T) {
	calc := NewPayrollCalculator(PayrollConfig{})
	teachers := []core.Teacher{
		{ID: "t1", PaymentType: core.PayHourly, HourlyRate: cents(50), Groups: groups(1, 1, 1)},
		{ID: "t2", PaymentType: core.PayPercentage, Commission: 10, Groups: groups(10, 5)},
		{ID: "t3", PaymentType: "BARTER"},
	}
	sum := calc.MonthlyPayroll(context.Background(), teachers)
	if len(sum.Lines) != 3 {
		t.Fatalf("len(Lines) = %d", len(sum.Lines))
	}
	if sum.Total.Cents != 120000+75000 {
		t.Errorf("Total = %s, want 1950.00", sum.Total)
	}
}

func TestPayrollConfigOverrides(t *testing.T) {
	calc := NewPayrollCalculator(PayrollConfig{HoursPerGroup: 10, RevenuePerStudent: cents(400)})
	ctx := context.Background()
	hourly := calc.TeacherExpense(ctx, core.Teacher{PaymentType: core.PayHourly, HourlyRate: cents(50), Groups: groups(1, 1)})
	if hourly.Hours != 20 || hourly.Expense.Cents != 100000 {
		t.Errorf("hourly = %+v", hourly)
	}
	pct := calc.TeacherExpense(ctx, core.Teacher{PaymentType: core.PayPercentage, Commission: 50, Groups: groups(2)})
	if pct.Expense.Cents != 40000 {
		t.Errorf("percentage = %+v", pct)
	}
}

type flatBonus struct{ amount core.Money }

func (f flatBonus) Compute(t core.Teacher, _ PayrollConfig) core.PayrollLine {
	return core.PayrollLine{TeacherID: t.ID, PaymentType: t.PaymentType, Expense: f.amount}
}

func TestRegisterSalaryStrategy(t *testing.T) {
	const bonus core.PaymentType = "BONUS_TEST"
	if _, err := GetSalaryStrategy(bonus); err == nil {
		t.Fatal("expected unknown payment type")
	}
	RegisterSalaryStrategy(bonus, flatBonus{amount: cents(75)})
	line := NewPayrollCalculator(DefaultPayrollConfig()).TeacherExpense(context.Background(), core.Teacher{ID: "x", PaymentType: bonus})
	if line.Expense.Cents != 7500 || line.Unknown {
		t.Errorf("line = %+v", line)
	}
}
