package service

import (
	"context"
	"time"

	"cantina/internal/model"
	"cantina/internal/repository"

	"gorm.io/gorm"
)

// ReportService serves read-only aggregates for export consumers. Nothing
// here is part of the transactional write path.
type ReportService struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	menuRepo    *repository.MenuRepository
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{
		db:          db,
		orderRepo:   repository.NewOrderRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		menuRepo:    repository.NewMenuRepository(db),
	}
}

func (s *ReportService) OrderStats(ctx context.Context, from, to time.Time) (*repository.OrderStats, error) {
	return s.orderRepo.Stats(ctx, from, to)
}

// DebtReport lists accounts in debt with the grand totals attached.
type DebtReport struct {
	Debtors        []*model.Account `json:"debtors"`
	TotalUsers     int              `json:"total_users"`
	TotalDebtCents int64            `json:"total_debt_cents"`
	AvgDebtCents   int64            `json:"avg_debt_cents"`
}

func (s *ReportService) Debtors(ctx context.Context, minDebtCents int64) (*DebtReport, error) {
	debtors, err := s.accountRepo.ListDebtors(ctx, minDebtCents)
	if err != nil {
		return nil, err
	}
	report := &DebtReport{Debtors: debtors, TotalUsers: len(debtors)}
	for _, account := range debtors {
		report.TotalDebtCents += account.CurrentBalanceCents
	}
	if report.TotalUsers > 0 {
		report.AvgDebtCents = report.TotalDebtCents / int64(report.TotalUsers)
	}
	return report, nil
}

func (s *ReportService) MonthlyCreditSummary(ctx context.Context, year int, month time.Month) (*repository.MonthlySummary, error) {
	if month < time.January || month > time.December {
		return nil, validationErrorf("invalid month %d", month)
	}
	return s.ledgerRepo.SummarizeMonth(ctx, year, month)
}

func (s *ReportService) MenuDemand(ctx context.Context, from, to time.Time) ([]*repository.MenuDemand, error) {
	return s.menuRepo.DemandByDateRange(ctx, from, to)
}
