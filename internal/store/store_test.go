package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestMigrate_SetsSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if v := s.currentVersion(); v != 3 {
		t.Fatalf("currentVersion() = %d, want 3", v)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate() = %v, want nil", err)
	}
}

func TestInsertEvent_AndCountRange(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.InsertEvent(SensorEvent{Timestamp: "2026-01-01T10:05:00", SensorID: "pir1", Channel: "presence"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if err := s.InsertEvent(SensorEvent{Timestamp: "2026-01-01T10:10:00", SensorID: "pir1", Channel: "presence"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if err := s.InsertEvent(SensorEvent{Timestamp: "2026-01-01T10:10:00", SensorID: "door1", Channel: "door"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	counts, err := s.CountEventsInRange("2026-01-01T00:00:00", "2026-01-01T23:59:59")
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if counts["presence"] != 2 || counts["door"] != 1 {
		t.Fatalf("counts = %+v, want presence=2 door=1", counts)
	}
}

func TestUpsertSlotAndLoadDay(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.UpsertSlot("2026-01-01", 40, "presence", true, 3); err != nil {
		t.Fatalf("upsert slot: %v", err)
	}
	if err := s.FillMissingSlots("2026-01-01", []string{"presence", "door"}); err != nil {
		t.Fatalf("fill missing: %v", err)
	}

	data, err := s.LoadDaySlots("2026-01-01", []string{"presence", "door"})
	if err != nil {
		t.Fatalf("load day slots: %v", err)
	}
	if data["presence"][40] != 1 {
		t.Fatalf("presence[40] = %d, want 1", data["presence"][40])
	}
	if data["door"][40] != 0 {
		t.Fatalf("door[40] = %d, want 0", data["door"][40])
	}
	if len(data["presence"]) != SlotsPerDay {
		t.Fatalf("len(presence) = %d, want %d", len(data["presence"]), SlotsPerDay)
	}
}

func TestLoadModel_SeedsOnFirstCall(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	model, err := s.LoadModel([]string{"presence", "door"}, 1, 1)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	if len(model["presence"]) != SlotsPerDay || len(model["door"]) != SlotsPerDay {
		t.Fatalf("expected %d slots per channel", SlotsPerDay)
	}

	var rowCount int
	if err := s.sql.QueryRow(`SELECT COUNT(*) FROM model_state`).Scan(&rowCount); err != nil {
		t.Fatalf("count model_state: %v", err)
	}
	if rowCount != 2*SlotsPerDay {
		t.Fatalf("rowCount = %d, want %d", rowCount, 2*SlotsPerDay)
	}
}

func TestSaveModel_PersistsUpdatedPosteriors(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	model, err := s.LoadModel([]string{"presence"}, 1, 1)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	model["presence"][0] = model["presence"][0].Update(1)

	if err := s.SaveModel(model, "2026-01-01"); err != nil {
		t.Fatalf("save model: %v", err)
	}

	reloaded, err := s.LoadModel([]string{"presence"}, 1, 1)
	if err != nil {
		t.Fatalf("reload model: %v", err)
	}
	if reloaded["presence"][0].Alpha != 2 {
		t.Fatalf("alpha = %v, want 2", reloaded["presence"][0].Alpha)
	}
}

func TestSystemState_GetSetAndVacationMode(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	v, err := s.IsVacationMode(false)
	if err != nil {
		t.Fatalf("vacation mode: %v", err)
	}
	if v {
		t.Fatal("expected default false when unset")
	}

	if err := s.SetState("vacation_mode", "true"); err != nil {
		t.Fatalf("set state: %v", err)
	}
	v, err = s.IsVacationMode(false)
	if err != nil {
		t.Fatalf("vacation mode: %v", err)
	}
	if !v {
		t.Fatal("expected true once stored")
	}
}

func TestPendingAlert_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	id, err := s.CreatePendingAlert(3, "fall suspected", "2026-01-01T10:00:00")
	if err != nil {
		t.Fatalf("create pending alert: %v", err)
	}

	expired, err := s.ExpiredPendingAlerts("2026-01-01T10:05:00")
	if err != nil {
		t.Fatalf("expired pending alerts: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != id {
		t.Fatalf("expired = %+v, want 1 entry with id %d", expired, id)
	}

	if err := s.SetPendingAlertStatus(id, PendingAlertEscalated); err != nil {
		t.Fatalf("set status: %v", err)
	}

	expired, err = s.ExpiredPendingAlerts("2026-01-01T10:05:00")
	if err != nil {
		t.Fatalf("expired pending alerts after escalation: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired = %+v, want none once escalated", expired)
	}
}

func TestAcknowledgePendingAlert_FailsWhenAlreadyResolved(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	id, err := s.CreatePendingAlert(3, "fall suspected", "2026-01-01T10:00:00")
	if err != nil {
		t.Fatalf("create pending alert: %v", err)
	}
	if err := s.AcknowledgePendingAlert(id); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := s.AcknowledgePendingAlert(id); err == nil {
		t.Fatal("expected error acknowledging an already-resolved alert")
	}
}

func TestDailyScore_InsertAndReadBack(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	ds := DailyScore{
		Date:      "2026-01-01",
		TrainDays: 5,
		Metrics:   DailyMetrics{NLLTotal: 12.5, CountZ: -0.4, ObservedCount: 30, ExpectedCount: 35},
		IsLearning: true,
	}
	if err := s.InsertDailyScore(ds); err != nil {
		t.Fatalf("insert daily score: %v", err)
	}

	has, err := s.HasDailyScore("2026-01-01")
	if err != nil || !has {
		t.Fatalf("has daily score = %v, %v, want true, nil", has, err)
	}

	row, err := s.GetScoreForScoring("2026-01-01")
	if err != nil || row == nil {
		t.Fatalf("get score for scoring = %v, %v", row, err)
	}
	if row.NLLTotal != 12.5 || !row.IsLearning {
		t.Fatalf("row = %+v, want NLLTotal=12.5 IsLearning=true", row)
	}

	if err := s.UpdateCompositeScore("2026-01-01", 2.75, 2); err != nil {
		t.Fatalf("update composite score: %v", err)
	}
	summary, err := s.DailyScoreForDate("2026-01-01")
	if err != nil || summary == nil {
		t.Fatalf("daily score for date = %v, %v", summary, err)
	}
	if summary.CompositeZ != 2.75 || summary.AlertLevel != 2 {
		t.Fatalf("summary = %+v, want CompositeZ=2.75 AlertLevel=2", summary)
	}
}
