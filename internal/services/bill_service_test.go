package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"granafacil/internal/models"
	"granafacil/internal/pagination"
	"granafacil/internal/testutil"
)

func TestCreateBill(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		bill, err := svc.CreateBill(user.ID, "Aluguel", models.BillTypePayable,
			decimal.NewFromInt(1500), time.Now().AddDate(0, 0, 5))
		testutil.AssertNoError(t, err)

		if bill.Status != models.BillStatusPending {
			t.Errorf("expected status pending, got %s", bill.Status)
		}
		if bill.PaidAt != nil {
			t.Error("expected nil paid_at on creation")
		}
	})

	t.Run("missing_due_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateBill(user.ID, "Aluguel", models.BillTypePayable,
			decimal.NewFromInt(1500), time.Time{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserBills(t *testing.T) {
	t.Run("annotates_due_state", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		overdue := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(10), time.Now().AddDate(0, 0, -3))
		today := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(20), time.Now())
		upcoming := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(30), time.Now().AddDate(0, 0, 3))

		result, err := svc.GetUserBills(user.ID, pagination.PageRequest{}, BillFilter{})
		testutil.AssertNoError(t, err)

		if len(result.Data) != 3 {
			t.Fatalf("expected 3 bills, got %d", len(result.Data))
		}

		states := make(map[string]models.DueState)
		for _, bill := range result.Data {
			states[bill.ID] = bill.DueState
		}
		if states[overdue.ID] != models.DueStateOverdue {
			t.Errorf("expected overdue, got %s", states[overdue.ID])
		}
		if states[today.ID] != models.DueStateDueToday {
			t.Errorf("expected due_today, got %s", states[today.ID])
		}
		if states[upcoming.ID] != models.DueStateUpcoming {
			t.Errorf("expected upcoming, got %s", states[upcoming.ID])
		}
	})

	t.Run("ordered_by_due_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		later := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(10), time.Now().AddDate(0, 0, 10))
		sooner := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(20), time.Now().AddDate(0, 0, 1))

		result, err := svc.GetUserBills(user.ID, pagination.PageRequest{}, BillFilter{})
		testutil.AssertNoError(t, err)

		if result.Data[0].ID != sooner.ID || result.Data[1].ID != later.ID {
			t.Error("expected bills ordered by due date ascending")
		}
	})

	t.Run("filter_by_status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		bill := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(10), time.Now())
		testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(20), time.Now())

		_, err := svc.MarkPaid(user.ID, bill.ID)
		testutil.AssertNoError(t, err)

		result, err := svc.GetUserBills(user.ID, pagination.PageRequest{},
			BillFilter{Status: models.BillStatusPaid})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Fatalf("expected 1 paid bill, got %d", result.TotalItems)
		}
		if result.Data[0].ID != bill.ID {
			t.Errorf("expected paid bill %s, got %s", bill.ID, result.Data[0].ID)
		}
	})
}

func TestMarkPaid(t *testing.T) {
	t.Run("stamps_payment_time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)
		bill := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(100), time.Now())

		paid, err := svc.MarkPaid(user.ID, bill.ID)
		testutil.AssertNoError(t, err)

		if paid.Status != models.BillStatusPaid {
			t.Errorf("expected status paid, got %s", paid.Status)
		}
		if paid.PaidAt == nil {
			t.Fatal("expected paid_at to be stamped")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)
		bill := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
			decimal.NewFromInt(100), time.Now())

		first, err := svc.MarkPaid(user.ID, bill.ID)
		testutil.AssertNoError(t, err)

		second, err := svc.MarkPaid(user.ID, bill.ID)
		testutil.AssertNoError(t, err)

		if !first.PaidAt.Equal(*second.PaidAt) {
			t.Error("paying an already-paid bill must not move paid_at")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBillService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.MarkPaid(user.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "BILL_NOT_FOUND")
	})
}

func TestGetRecentPaidBills(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBillService(db)
	user := testutil.CreateTestUser(t, db)

	pending := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
		decimal.NewFromInt(10), time.Now())
	paid := testutil.CreateTestBill(t, db, user.ID, models.BillTypePayable,
		decimal.NewFromInt(20), time.Now())

	_, err := svc.MarkPaid(user.ID, paid.ID)
	testutil.AssertNoError(t, err)

	bills, err := svc.GetRecentPaidBills(user.ID, 3)
	testutil.AssertNoError(t, err)

	if len(bills) != 1 {
		t.Fatalf("expected 1 paid bill, got %d", len(bills))
	}
	if bills[0].ID == pending.ID {
		t.Error("pending bill must not appear in recent paid bills")
	}
}

func TestDueStateAt(t *testing.T) {
	now := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		bill     models.Bill
		expected models.DueState
	}{
		{"paid_is_upcoming", models.Bill{Status: models.BillStatusPaid, DueDate: now.AddDate(0, 0, -5)}, models.DueStateUpcoming},
		{"past_due", models.Bill{Status: models.BillStatusPending, DueDate: now.AddDate(0, 0, -1)}, models.DueStateOverdue},
		{"same_day", models.Bill{Status: models.BillStatusPending, DueDate: now.Add(5 * time.Hour)}, models.DueStateDueToday},
		{"future", models.Bill{Status: models.BillStatusPending, DueDate: now.AddDate(0, 0, 2)}, models.DueStateUpcoming},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.bill.DueStateAt(now); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}
