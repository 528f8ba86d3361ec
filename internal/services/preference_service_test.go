package services

import (
	"testing"

	"cashflow/internal/models"
	"cashflow/internal/pagination"
	"cashflow/internal/testutil"
)

func TestPreferenceService(t *testing.T) {
	t.Run("defaults_when_unset", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPreferenceService(db)
		user := testutil.CreateTestUser(t, db)

		pref, err := svc.GetPreference(user.ID)
		testutil.AssertNoError(t, err)
		if pref.Theme != models.ThemeLight || pref.Currency != "USD" {
			t.Errorf("unexpected defaults %+v", pref)
		}
	})

	t.Run("update_persists", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPreferenceService(db)
		user := testutil.CreateTestUser(t, db)

		theme := models.ThemeDark
		currency := "eur"
		pref, err := svc.UpdatePreference(user.ID, &theme, &currency)
		testutil.AssertNoError(t, err)
		if pref.Theme != models.ThemeDark || pref.Currency != "EUR" {
			t.Errorf("unexpected preference %+v", pref)
		}

		// Another instance reads the stored row.
		reloaded, err := NewPreferenceService(db).GetPreference(user.ID)
		testutil.AssertNoError(t, err)
		if reloaded.Theme != models.ThemeDark || reloaded.Currency != "EUR" {
			t.Errorf("expected stored preference, got %+v", reloaded)
		}

		// Second write goes through the upsert path.
		theme = models.ThemeSystem
		_, err = svc.UpdatePreference(user.ID, &theme, nil)
		testutil.AssertNoError(t, err)

		var stored models.Preference
		testutil.AssertNoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
		if stored.Theme != models.ThemeSystem || stored.Currency != "EUR" {
			t.Errorf("unexpected stored row %+v", stored)
		}
	})

	t.Run("instances_see_each_others_writes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		first := NewPreferenceService(db)
		second := NewPreferenceService(db)
		user := testutil.CreateTestUser(t, db)

		pref, err := first.GetPreference(user.ID)
		testutil.AssertNoError(t, err)
		if pref.Theme != models.ThemeLight {
			t.Fatalf("expected default theme, got %q", pref.Theme)
		}

		theme := models.ThemeDark
		_, err = second.UpdatePreference(user.ID, &theme, nil)
		testutil.AssertNoError(t, err)

		pref, err = first.GetPreference(user.ID)
		testutil.AssertNoError(t, err)
		if pref.Theme != models.ThemeDark {
			t.Errorf("expected dark after a write elsewhere, got %q", pref.Theme)
		}

		currency := "JPY"
		_, err = first.UpdatePreference(user.ID, nil, &currency)
		testutil.AssertNoError(t, err)
		pref, err = second.GetPreference(user.ID)
		testutil.AssertNoError(t, err)
		if pref.Theme != models.ThemeDark || pref.Currency != "JPY" {
			t.Errorf("expected dark/JPY, got %+v", pref)
		}
	})

	t.Run("invalid_values", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPreferenceService(db)
		user := testutil.CreateTestUser(t, db)

		theme := models.Theme("neon")
		_, err := svc.UpdatePreference(user.ID, &theme, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		currency := "dollars"
		_, err = svc.UpdatePreference(user.ID, nil, &currency)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAuditService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	for i := 0; i < 3; i++ {
		svc.Log(user.ID, AuditActionDelete, ResourceTransaction, "tx-id", "127.0.0.1", map[string]any{"n": i})
	}
	svc.Log(other.ID, AuditActionImport, ResourceTransaction, "", "127.0.0.1", nil)

	page, err := svc.GetUserAuditLogs(user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 3 || page.TotalPages != 2 || len(page.Data) != 2 {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Data[0].Action != AuditActionDelete || page.Data[0].Changes == "" {
		t.Errorf("unexpected entry %+v", page.Data[0])
	}

	page, err = svc.GetUserAuditLogs(other.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 1 || page.Data[0].Changes != "" {
		t.Errorf("unexpected page for other user %+v", page)
	}
}
