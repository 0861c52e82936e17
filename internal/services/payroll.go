package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arwaeduc/internal/core"
)

// PayrollConfig holds the business constants of salary computation.
type PayrollConfig struct {
	// HoursPerGroup is the monthly teaching load of one group.
	HoursPerGroup int
	// RevenuePerStudent is the estimated monthly revenue of one enrolled student.
	RevenuePerStudent core.Money
}

// DefaultPayrollConfig is 8 hours per group and 500.00 per student.
func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{HoursPerGroup: 8, RevenuePerStudent: core.Money{Cents: 50000}}
}

// SalaryStrategy computes one teacher's monthly expense for a payment type.
type SalaryStrategy interface {
	Compute(t core.Teacher, cfg PayrollConfig) core.PayrollLine
}

// FixedSalary pays HourlyRate as a flat monthly amount.
type FixedSalary struct{}

func (FixedSalary) Compute(t core.Teacher, _ PayrollConfig) core.PayrollLine {
	line := baseLine(t)
	line.Expense = t.HourlyRate
	return line
}

// HourlySalary pays HoursPerGroup hours per group at HourlyRate.
type HourlySalary struct{}

func (HourlySalary) Compute(t core.Teacher, cfg PayrollConfig) core.PayrollLine {
	line := baseLine(t)
	line.Hours = len(t.Groups) * cfg.HoursPerGroup
	line.Expense = t.HourlyRate.Times(int64(line.Hours))
	return line
}

// PercentageSalary pays Commission percent of the estimated revenue of the
// teacher's students.
type PercentageSalary struct{}

func (PercentageSalary) Compute(t core.Teacher, cfg PayrollConfig) core.PayrollLine {
	line := baseLine(t)
	line.Revenue = cfg.RevenuePerStudent.Times(int64(line.Students))
	line.Expense = line.Revenue.Percent(t.Commission)
	return line
}

func baseLine(t core.Teacher) core.PayrollLine {
	return core.PayrollLine{
		TeacherID:   t.ID,
		Name:        t.Name,
		PaymentType: t.PaymentType,
		Groups:      len(t.Groups),
		Students:    t.TotalStudents(),
	}
}

var (
	salaryMu         sync.RWMutex
	salaryStrategies = map[core.PaymentType]SalaryStrategy{
		core.PayFixed:      FixedSalary{},
		core.PayHourly:     HourlySalary{},
		core.PayPercentage: PercentageSalary{},
	}
)

// GetSalaryStrategy returns the strategy for a payment type.
func GetSalaryStrategy(pt core.PaymentType) (SalaryStrategy, error) {
	salaryMu.RLock()
	defer salaryMu.RUnlock()
	s, ok := salaryStrategies[pt]
	if !ok {
		return nil, fmt.Errorf("unknown payment type: %q", pt)
	}
	return s, nil
}

// RegisterSalaryStrategy adds or replaces the strategy for a payment type.
func RegisterSalaryStrategy(pt core.PaymentType, s SalaryStrategy) {
	salaryMu.Lock()
	defer salaryMu.Unlock()
	salaryStrategies[pt] = s
}

// PayrollCalculator turns teachers into payroll lines.
type PayrollCalculator struct {
	cfg PayrollConfig
}

// NewPayrollCalculator falls back to the defaults for unset fields.
func NewPayrollCalculator(cfg PayrollConfig) *PayrollCalculator {
	def := DefaultPayrollConfig()
	if cfg.HoursPerGroup <= 0 {
		cfg.HoursPerGroup = def.HoursPerGroup
	}
	if cfg.RevenuePerStudent.Cents <= 0 {
		cfg.RevenuePerStudent = def.RevenuePerStudent
	}
	return &PayrollCalculator{cfg: cfg}
}

func (c *PayrollCalculator) Config() PayrollConfig { return c.cfg }

// TeacherExpense computes one line. An unknown payment type yields a zero
// expense flagged Unknown.
func (c *PayrollCalculator) TeacherExpense(ctx context.Context, t core.Teacher) core.PayrollLine {
	s, err := GetSalaryStrategy(t.PaymentType)
	if err != nil {
		slog.WarnContext(ctx, "Unknown teacher payment type, expense set to zero",
			"teacher_id", t.ID, "payment_type", t.PaymentType)
		line := baseLine(t)
		line.Unknown = true
		return line
	}
	return s.Compute(t, c.cfg)
}

// MonthlyPayroll computes every teacher's line and the grand total.
func (c *PayrollCalculator) MonthlyPayroll(ctx context.Context, teachers []core.Teacher) core.PayrollSummary {
	sum := core.PayrollSummary{Lines: make([]core.PayrollLine, 0, len(teachers))}
	for _, t := range teachers {
		line := c.TeacherExpense(ctx, t)
		sum.Lines = append(sum.Lines, line)
		sum.Total = sum.Total.Add(line.Expense)
	}
	return sum
}
