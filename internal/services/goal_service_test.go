package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"granafacil/internal/models"
	"granafacil/internal/testutil"
)

func TestCreateGoal(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)

		goal, err := svc.CreateGoal(user.ID, "Viagem", decimal.NewFromInt(5000))
		testutil.AssertNoError(t, err)

		if goal.Status != models.GoalStatusActive {
			t.Errorf("expected status active, got %s", goal.Status)
		}
		if !goal.CurrentAmount.IsZero() {
			t.Errorf("expected zero current amount, got %s", goal.CurrentAmount)
		}
		if len(goal.Contributions) != 0 {
			t.Errorf("expected no contributions, got %d", len(goal.Contributions))
		}
	})

	t.Run("zero_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateGoal(user.ID, "Viagem", decimal.Zero)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAddContribution(t *testing.T) {
	t.Run("current_amount_is_sum_of_contributions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(200), "primeira")
		testutil.AssertNoError(t, err)
		updated, err = svc.AddContribution(user.ID, updated.ID, decimal.NewFromInt(300), "segunda")
		testutil.AssertNoError(t, err)

		if !updated.CurrentAmount.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected current amount 500, got %s", updated.CurrentAmount)
		}
		if len(updated.Contributions) != 2 {
			t.Fatalf("expected 2 contributions, got %d", len(updated.Contributions))
		}
		if updated.Status != models.GoalStatusActive {
			t.Errorf("expected status active, got %s", updated.Status)
		}
	})

	t.Run("reaching_target_completes_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(100))

		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(100), "")
		testutil.AssertNoError(t, err)

		if updated.Status != models.GoalStatusCompleted {
			t.Errorf("expected status completed, got %s", updated.Status)
		}
	})

	t.Run("zero_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(100))

		_, err := svc.AddContribution(user.ID, goal.ID, decimal.Zero, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("goal_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AddContribution(user.ID, "00000000-0000-0000-0000-000000000000", decimal.NewFromInt(10), "")
		testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	})
}

func TestDeleteContribution(t *testing.T) {
	t.Run("removes_and_recomputes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(200), "")
		testutil.AssertNoError(t, err)
		updated, err = svc.AddContribution(user.ID, updated.ID, decimal.NewFromInt(300), "")
		testutil.AssertNoError(t, err)

		target := updated.Contributions[0]
		updated, err = svc.DeleteContribution(user.ID, goal.ID, target.ID)
		testutil.AssertNoError(t, err)

		if len(updated.Contributions) != 1 {
			t.Fatalf("expected 1 contribution left, got %d", len(updated.Contributions))
		}
		expected := decimal.NewFromInt(500).Sub(target.Amount)
		if !updated.CurrentAmount.Equal(expected) {
			t.Errorf("expected current amount %s, got %s", expected, updated.CurrentAmount)
		}
	})

	t.Run("reopens_completed_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(100))

		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(100), "")
		testutil.AssertNoError(t, err)
		if updated.Status != models.GoalStatusCompleted {
			t.Fatalf("expected completed goal, got %s", updated.Status)
		}

		updated, err = svc.DeleteContribution(user.ID, goal.ID, updated.Contributions[0].ID)
		testutil.AssertNoError(t, err)

		if updated.Status != models.GoalStatusActive {
			t.Errorf("expected goal reopened as active, got %s", updated.Status)
		}
		if !updated.CurrentAmount.IsZero() {
			t.Errorf("expected zero current amount, got %s", updated.CurrentAmount)
		}
	})

	t.Run("contribution_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(100))

		_, err := svc.DeleteContribution(user.ID, goal.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "CONTRIBUTION_NOT_FOUND")
	})

	t.Run("clamps_current_amount_at_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(100), "")
		testutil.AssertNoError(t, err)

		// A drifted stored total must not let a deletion push it negative.
		err = db.Model(&models.Goal{}).Where("id = ?", goal.ID).
			Update("current_amount", decimal.NewFromInt(50)).Error
		testutil.AssertNoError(t, err)

		updated, err = svc.DeleteContribution(user.ID, goal.ID, updated.Contributions[0].ID)
		testutil.AssertNoError(t, err)

		if !updated.CurrentAmount.IsZero() {
			t.Errorf("expected clamped current amount 0, got %s", updated.CurrentAmount)
		}
	})
}

func TestGoalVersioning(t *testing.T) {
	t.Run("version_bumps_on_each_write", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		_, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(10), "")
		testutil.AssertNoError(t, err)
		_, err = svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(10), "")
		testutil.AssertNoError(t, err)

		var stored models.Goal
		testutil.AssertNoError(t, db.Where("id = ?", goal.ID).First(&stored).Error)
		if stored.Version != 2 {
			t.Errorf("expected version 2 after two writes, got %d", stored.Version)
		}
	})

	t.Run("stale_write_conflicts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db).(*goalService)
		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		// Read the goal, then let another writer win the race.
		stale, err := svc.GetGoalByID(user.ID, created.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.AddContribution(user.ID, created.ID, decimal.NewFromInt(10), "concurrent")
		testutil.AssertNoError(t, err)

		_, err = svc.writeContributions(user.ID, stale, stale.Contributions, decimal.NewFromInt(99))
		testutil.AssertAppError(t, err, "GOAL_CONFLICT")
	})
}

func TestGetGoalByID(t *testing.T) {
	t.Run("contributions_newest_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))

		_, err := svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(10), "primeira")
		testutil.AssertNoError(t, err)
		_, err = svc.AddContribution(user.ID, goal.ID, decimal.NewFromInt(20), "segunda")
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetGoalByID(user.ID, goal.ID)
		testutil.AssertNoError(t, err)

		if len(fetched.Contributions) != 2 {
			t.Fatalf("expected 2 contributions, got %d", len(fetched.Contributions))
		}
		first, second := fetched.Contributions[0], fetched.Contributions[1]
		if first.CreatedAt.Before(second.CreatedAt) {
			t.Error("expected contributions ordered newest first")
		}
	})

	t.Run("other_users_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db)
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		goal := testutil.CreateTestGoal(t, db, user2.ID, decimal.NewFromInt(100))

		_, err := svc.GetGoalByID(user1.ID, goal.ID)
		testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	})
}
