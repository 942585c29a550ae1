package services

import (
	"time"

	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
)

// FinanceService computes read-only dashboard rollups from the active
// obligations and transactions. It never mutates either store.
type FinanceService struct {
	db *gorm.DB
}

func NewFinanceService(db *gorm.DB) *FinanceService {
	return &FinanceService{db: db}
}

// FinanceSummary is the dashboard-level financial snapshot
type FinanceSummary struct {
	TotalRevenue      float64                        `json:"total_revenue"`
	TotalOutstanding  float64                        `json:"total_outstanding"`
	CollectionRate    float64                        `json:"collection_rate"`
	StatusCounts      map[models.PaymentStatus]int64 `json:"status_counts"`
	OverdueAmount     float64                        `json:"overdue_amount"`
	MonthlyGrowthRate float64                        `json:"monthly_growth_rate"`
	ParticipationRate float64                        `json:"participation_rate"`
}

// RangeSummary restricts revenue figures to transactions inside [start, end]
type RangeSummary struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalRevenue     float64   `json:"total_revenue"`
	TotalDiscount    float64   `json:"total_discount"`
	TransactionCount int64     `json:"transaction_count"`
}

// Summary computes the full dashboard snapshot as of now
func (s *FinanceService) Summary(now time.Time) (*FinanceSummary, error) {
	summary := &FinanceSummary{
		StatusCounts: make(map[models.PaymentStatus]int64),
	}

	totals := struct {
		Revenue     float64
		Outstanding float64
	}{}
	if err := s.db.Model(&models.Obligation{}).
		Select("COALESCE(SUM(total_amount_paid), 0) AS revenue, COALESCE(SUM(outstanding_amount), 0) AS outstanding").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	summary.TotalRevenue = totals.Revenue
	summary.TotalOutstanding = totals.Outstanding
	summary.CollectionRate = collectionRate(totals.Revenue, totals.Outstanding)

	var statusRows []struct {
		Status models.PaymentStatus
		Count  int64
	}
	if err := s.db.Model(&models.Obligation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		summary.StatusCounts[row.Status] = row.Count
	}

	if err := s.db.Model(&models.Obligation{}).
		Where("status = ?", models.PaymentStatusOverdue).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Scan(&summary.OverdueAmount).Error; err != nil {
		return nil, err
	}

	growth, err := s.monthlyGrowthRate(now)
	if err != nil {
		return nil, err
	}
	summary.MonthlyGrowthRate = growth

	participation, err := s.participationRate()
	if err != nil {
		return nil, err
	}
	summary.ParticipationRate = participation

	return summary, nil
}

// SummaryRange computes revenue and transaction count over transactions
// whose payment date falls within [start, end].
func (s *FinanceService) SummaryRange(start, end time.Time) (*RangeSummary, error) {
	summary := &RangeSummary{StartDate: start, EndDate: end}

	row := struct {
		Revenue  float64
		Discount float64
		Count    int64
	}{}
	if err := s.db.Model(&models.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS revenue, COALESCE(SUM(discount), 0) AS discount, COUNT(*) AS count").
		Where("paid_at >= ? AND paid_at <= ?", start, end).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	summary.TotalRevenue = row.Revenue
	summary.TotalDiscount = row.Discount
	summary.TransactionCount = row.Count
	return summary, nil
}

func (s *FinanceService) monthlyGrowthRate(now time.Time) (float64, error) {
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	currentEnd := currentStart.AddDate(0, 1, 0)
	previousStart := currentStart.AddDate(0, -1, 0)

	current, err := s.revenueBetween(currentStart, currentEnd)
	if err != nil {
		return 0, err
	}
	previous, err := s.revenueBetween(previousStart, currentStart)
	if err != nil {
		return 0, err
	}
	return monthlyGrowthRate(current, previous), nil
}

func (s *FinanceService) revenueBetween(start, end time.Time) (float64, error) {
	var revenue float64
	err := s.db.Model(&models.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("paid_at >= ? AND paid_at < ?", start, end).
		Scan(&revenue).Error
	return revenue, err
}

func (s *FinanceService) participationRate() (float64, error) {
	var billable int64
	if err := s.db.Model(&models.Obligation{}).
		Distinct("student_id").Count(&billable).Error; err != nil {
		return 0, err
	}
	if billable == 0 {
		return 0, nil
	}

	var paying int64
	if err := s.db.Model(&models.Obligation{}).
		Where("total_amount_paid > 0").
		Distinct("student_id").Count(&paying).Error; err != nil {
		return 0, err
	}
	return float64(paying) / float64(billable) * 100, nil
}

// collectionRate is the share of the total due that has been collected,
// defined as 100 when nothing was due.
func collectionRate(revenue, outstanding float64) float64 {
	total := revenue + outstanding
	if total == 0 {
		return 100
	}
	return revenue / total * 100
}

// monthlyGrowthRate follows the dashboard convention: a month growing from
// zero reads as 100, a month with no baseline and no revenue reads as 0.
func monthlyGrowthRate(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}
