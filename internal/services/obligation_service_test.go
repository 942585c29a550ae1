package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tutorcenter_backoffice/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type billingFixture struct {
	student models.Student
	fee     models.Fee
	year    models.AcademicYear
	group   models.Group
	member  models.GroupMember
}

func seedBilling(t *testing.T, db *gorm.DB, feeAmount float64) billingFixture {
	t.Helper()

	f := billingFixture{
		student: models.Student{Name: "Andi Wijaya", IsActive: true},
		fee:     models.Fee{Name: "Monthly Tuition", Amount: feeAmount},
		year: models.AcademicYear{
			Label:     "2025/2026",
			StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			IsActive:  true,
		},
	}
	for _, m := range []interface{}{&f.student, &f.fee, &f.year} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("failed to seed fixture: %v", err)
		}
	}

	f.group = models.Group{
		Name:           "Math Intensive A",
		FeeID:          f.fee.ID,
		AcademicYearID: f.year.ID,
		IsActive:       true,
	}
	if err := db.Create(&f.group).Error; err != nil {
		t.Fatalf("failed to seed group: %v", err)
	}

	f.member = models.GroupMember{
		GroupID:    f.group.ID,
		StudentID:  f.student.ID,
		EnrolledAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&f.member).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	return f
}

func createTransaction(t *testing.T, db *gorm.DB, f billingFixture, amount float64, paidAt time.Time) models.PaymentTransaction {
	t.Helper()

	txn := models.PaymentTransaction{
		StudentID:       f.student.ID,
		FeeID:           f.fee.ID,
		GroupID:         &f.group.ID,
		Amount:          amount,
		GeneratedAmount: f.fee.Amount,
		PayMethod:       models.PayMethodCash,
		PaidAt:          paidAt,
		Status:          models.PaymentStatusPartial,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	return txn
}

func TestGenerateForEnrollment(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	obligation, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID)
	if err != nil {
		t.Fatalf("GenerateForEnrollment: %v", err)
	}

	if obligation.TotalAmountDue != 500000 {
		t.Errorf("TotalAmountDue = %v; want 500000", obligation.TotalAmountDue)
	}
	if obligation.TotalAmountPaid != 0 {
		t.Errorf("TotalAmountPaid = %v; want 0", obligation.TotalAmountPaid)
	}
	if obligation.OutstandingAmount != 500000 {
		t.Errorf("OutstandingAmount = %v; want 500000", obligation.OutstandingAmount)
	}
	if obligation.Status != models.PaymentStatusPending {
		t.Errorf("Status = %v; want PENDING", obligation.Status)
	}
	if obligation.DueDate == nil {
		t.Fatal("DueDate is nil")
	}
	wantDue := f.member.EnrolledAt.AddDate(0, 0, ObligationTermDays)
	if !obligation.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v; want enrollment + %d days (%v)", obligation.DueDate, ObligationTermDays, wantDue)
	}
}

func TestGenerateForEnrollmentConflict(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("first generate: %v", err)
	}

	_, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second generate: got %v; want ErrConflict", err)
	}

	var count int64
	db.Model(&models.Obligation{}).Count(&count)
	if count != 1 {
		t.Errorf("obligation rows = %d; want 1", count)
	}
}

func TestGenerateForEnrollmentNotFound(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(9999, f.group.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown student: got %v; want ErrNotFound", err)
	}
	if _, err := svc.GenerateForEnrollment(f.student.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group: got %v; want ErrNotFound", err)
	}
}

func TestGenerateSeedsFromExistingTransactions(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	// payment recorded before the obligation exists must be picked up
	createTransaction(t, db, f, 200000, time.Now())

	obligation, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID)
	if err != nil {
		t.Fatalf("GenerateForEnrollment: %v", err)
	}

	if obligation.TotalAmountPaid != 200000 {
		t.Errorf("TotalAmountPaid = %v; want 200000", obligation.TotalAmountPaid)
	}
	if obligation.OutstandingAmount != 300000 {
		t.Errorf("OutstandingAmount = %v; want 300000", obligation.OutstandingAmount)
	}
	if obligation.Status != models.PaymentStatusPartial {
		t.Errorf("Status = %v; want PARTIAL", obligation.Status)
	}
}

func TestGenerateForGroup(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	other := models.Student{Name: "Budi Santoso", IsActive: true}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed second student: %v", err)
	}
	inactive := models.Student{Name: "Citra Dewi", IsActive: false}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("seed inactive student: %v", err)
	}
	for _, id := range []uint{other.ID, inactive.ID} {
		if err := db.Create(&models.GroupMember{GroupID: f.group.ID, StudentID: id, EnrolledAt: time.Now()}).Error; err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}

	// first student is billed already; they must be skipped, not failed
	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("pre-generate: %v", err)
	}

	result, err := svc.GenerateForGroup(f.group.ID)
	if err != nil {
		t.Fatalf("GenerateForGroup: %v", err)
	}

	if result.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d; want 1", result.SuccessCount)
	}
	if len(result.Created) != 1 || result.Created[0].StudentID != other.ID {
		t.Errorf("Created = %+v; want one obligation for student %d", result.Created, other.ID)
	}
	// the inactive student is a per-row failure, not an abort
	if len(result.Failures) != 1 || result.Failures[0].StudentID != inactive.ID {
		t.Errorf("Failures = %+v; want one failure for student %d", result.Failures, inactive.ID)
	}
}

func TestGenerateForGroupNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForGroup(12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v; want ErrNotFound", err)
	}
}

func TestApplyPaymentScenario(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	createTransaction(t, db, f, 200000, time.Now())
	obligation, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if obligation.TotalAmountPaid != 200000 || obligation.OutstandingAmount != 300000 {
		t.Errorf("after first payment: paid=%v outstanding=%v; want 200000/300000",
			obligation.TotalAmountPaid, obligation.OutstandingAmount)
	}
	if obligation.Status != models.PaymentStatusPartial {
		t.Errorf("after first payment: status = %v; want PARTIAL", obligation.Status)
	}

	createTransaction(t, db, f, 300000, time.Now())
	obligation, err = svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if obligation.TotalAmountPaid != 500000 || obligation.OutstandingAmount != 0 {
		t.Errorf("after second payment: paid=%v outstanding=%v; want 500000/0",
			obligation.TotalAmountPaid, obligation.OutstandingAmount)
	}
	if obligation.Status != models.PaymentStatusPaid {
		t.Errorf("after second payment: status = %v; want PAID", obligation.Status)
	}
}

func TestApplyPaymentIdempotent(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	createTransaction(t, db, f, 200000, time.Now())

	first, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("first ApplyPayment: %v", err)
	}
	second, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("second ApplyPayment: %v", err)
	}

	if first.TotalAmountPaid != second.TotalAmountPaid ||
		first.OutstandingAmount != second.OutstandingAmount ||
		first.Status != second.Status {
		t.Errorf("recomputation is not idempotent: first=%+v second=%+v", first, second)
	}
}

func TestApplyPaymentOverpaymentKeepsRawOutstanding(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	createTransaction(t, db, f, 600000, time.Now())

	obligation, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if obligation.OutstandingAmount != -100000 {
		t.Errorf("OutstandingAmount = %v; want -100000 (not clamped)", obligation.OutstandingAmount)
	}
	if obligation.Status != models.PaymentStatusPaid {
		t.Errorf("Status = %v; want PAID", obligation.Status)
	}
}

func TestApplyPaymentCreatesMissingObligation(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	createTransaction(t, db, f, 200000, time.Now())

	obligation, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if obligation == nil {
		t.Fatal("expected an obligation to be generated")
	}
	if obligation.TotalAmountPaid != 200000 || obligation.Status != models.PaymentStatusPartial {
		t.Errorf("generated obligation: paid=%v status=%v; want 200000/PARTIAL",
			obligation.TotalAmountPaid, obligation.Status)
	}
}

func TestApplyPaymentSkipsWithoutGroup(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	obligation, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, nil)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if obligation != nil {
		t.Errorf("expected a silent skip, got %+v", obligation)
	}
}

func TestSweepOverdue(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	now := time.Now()
	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	partial := models.Obligation{
		StudentID: f.student.ID, FeeID: f.fee.ID, AcademicYearID: f.year.ID, GroupID: &f.group.ID,
		TotalAmountDue: 500000, TotalAmountPaid: 200000, OutstandingAmount: 300000,
		Status: models.PaymentStatusPartial, DueDate: &past, EnrollmentDate: past,
	}
	other := models.Student{Name: "Budi Santoso", IsActive: true}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	paid := models.Obligation{
		StudentID: other.ID, FeeID: f.fee.ID, AcademicYearID: f.year.ID, GroupID: &f.group.ID,
		TotalAmountDue: 500000, TotalAmountPaid: 500000, OutstandingAmount: 0,
		Status: models.PaymentStatusPaid, DueDate: &past, EnrollmentDate: past,
	}
	third := models.Student{Name: "Citra Dewi", IsActive: true}
	if err := db.Create(&third).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	notDue := models.Obligation{
		StudentID: third.ID, FeeID: f.fee.ID, AcademicYearID: f.year.ID, GroupID: &f.group.ID,
		TotalAmountDue: 500000, TotalAmountPaid: 0, OutstandingAmount: 500000,
		Status: models.PaymentStatusPending, DueDate: &future, EnrollmentDate: now,
	}
	for _, o := range []*models.Obligation{&partial, &paid, &notDue} {
		if err := db.Create(o).Error; err != nil {
			t.Fatalf("seed obligation: %v", err)
		}
	}

	pendingTxn := models.PaymentTransaction{
		StudentID: f.student.ID, FeeID: f.fee.ID, Amount: 100000, GeneratedAmount: 500000,
		PaidAt: past, DueDate: &past, Status: models.PaymentStatusPartial,
	}
	if err := db.Create(&pendingTxn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	count, err := svc.SweepOverdue(now)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if count != 2 {
		t.Errorf("transitioned = %d; want 2 (one obligation, one transaction)", count)
	}

	var swept models.Obligation
	db.First(&swept, partial.ID)
	if swept.Status != models.PaymentStatusOverdue {
		t.Errorf("partial obligation: status = %v; want OVERDUE", swept.Status)
	}
	if swept.OutstandingAmount != 300000 {
		t.Errorf("sweep changed outstanding: %v; want 300000", swept.OutstandingAmount)
	}

	// monotonicity: a PAID obligation never leaves PAID in a sweep
	var untouched models.Obligation
	db.First(&untouched, paid.ID)
	if untouched.Status != models.PaymentStatusPaid {
		t.Errorf("paid obligation: status = %v; want PAID", untouched.Status)
	}

	var stillPending models.Obligation
	db.First(&stillPending, notDue.ID)
	if stillPending.Status != models.PaymentStatusPending {
		t.Errorf("future obligation: status = %v; want PENDING", stillPending.Status)
	}

	var sweptTxn models.PaymentTransaction
	db.First(&sweptTxn, pendingTxn.ID)
	if sweptTxn.Status != models.PaymentStatusOverdue {
		t.Errorf("transaction: status = %v; want OVERDUE", sweptTxn.Status)
	}

	// a second sweep finds nothing left to transition
	count, err = svc.SweepOverdue(now)
	if err != nil {
		t.Fatalf("second SweepOverdue: %v", err)
	}
	if count != 0 {
		t.Errorf("second sweep transitioned = %d; want 0", count)
	}
}

func TestRecalculateAll(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	createTransaction(t, db, f, 500000, time.Now())

	result, err := svc.RecalculateAll()
	if err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}
	if result.SuccessCount != 1 || len(result.Failures) != 0 {
		t.Errorf("result = %+v; want 1 success, 0 failures", result)
	}

	var obligation models.Obligation
	db.Where("student_id = ?", f.student.ID).First(&obligation)
	if obligation.Status != models.PaymentStatusPaid || obligation.OutstandingAmount != 0 {
		t.Errorf("recalculated: status=%v outstanding=%v; want PAID/0",
			obligation.Status, obligation.OutstandingAmount)
	}
}

func TestSoftDeletedTransactionsExcluded(t *testing.T) {
	db := setupTestDB(t)
	f := seedBilling(t, db, 500000)
	svc := NewObligationService(db)

	if _, err := svc.GenerateForEnrollment(f.student.ID, f.group.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	txn := createTransaction(t, db, f, 500000, time.Now())

	if _, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID); err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}

	// soft-delete the payment and recompute: the totals must fall back
	if err := db.Delete(&txn).Error; err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	obligation, err := svc.ApplyPayment(f.student.ID, f.fee.ID, f.year.ID, &f.group.ID)
	if err != nil {
		t.Fatalf("ApplyPayment after delete: %v", err)
	}

	if obligation.TotalAmountPaid != 0 || obligation.Status == models.PaymentStatusPaid {
		t.Errorf("after delete: paid=%v status=%v; want 0 and not PAID",
			obligation.TotalAmountPaid, obligation.Status)
	}
}
