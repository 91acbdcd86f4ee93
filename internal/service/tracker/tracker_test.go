package tracker

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/config"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/posture"
	"github.com/Ianszzkieyyy/sitsmart-app/internal/storage"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
}

type notification struct {
	Address string
	Name    string
}

func (f *fakeNotifier) Notify(toAddress, displayName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notification{Address: toAddress, Name: displayName})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(t *testing.T) (*Service, *sql.DB, *fakeNotifier) {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: ":memory:"},
	}}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A second connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	notifier := &fakeNotifier{}
	return NewService(db, nil, notifier), db, notifier
}

func createUser(t *testing.T, db *sql.DB, name, email string) int64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`,
		name, email, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}

func TestStartSessionRejectsSecondActive(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	first, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := svc.StartSession(ctx, userID, 25); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	if _, err := svc.EndSession(ctx, first.ID, nil, nil, nil); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := svc.StartSession(ctx, userID, 30); err != nil {
		t.Fatalf("start after end: %v", err)
	}
}

func TestStartSessionUnknownUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()

	if _, err := svc.StartSession(context.Background(), 9999, 25); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEndSessionStoresAggregatesVerbatim(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	focused, away := 72.5, 27.5
	score := "Good"
	ended, err := svc.EndSession(ctx, session.ID, &focused, &away, &score)
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if ended.EndedAt == nil {
		t.Fatalf("expected ended_at to be set")
	}
	if ended.FocusedPerc == nil || *ended.FocusedPerc != focused {
		t.Fatalf("focused_perc mismatch: %v", ended.FocusedPerc)
	}
	if ended.AwayPerc == nil || *ended.AwayPerc != away {
		t.Fatalf("away_perc mismatch: %v", ended.AwayPerc)
	}
	if ended.PostureScore == nil || *ended.PostureScore != score {
		t.Fatalf("posture_score mismatch: %v", ended.PostureScore)
	}

	if _, err := svc.EndSession(ctx, 42424, nil, nil, nil); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for unknown session, got %v", err)
	}
}

func TestEndSessionAllowsNilAggregates(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	ended, err := svc.EndSession(ctx, session.ID, nil, nil, nil)
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if ended.FocusedPerc != nil || ended.AwayPerc != nil || ended.PostureScore != nil {
		t.Fatalf("expected nil aggregates, got %+v", ended)
	}
}

func TestActiveSession(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	session, err := svc.ActiveSession(ctx, userID)
	if err != nil {
		t.Fatalf("active session: %v", err)
	}
	if session != nil {
		t.Fatalf("expected no active session, got %+v", session)
	}

	started, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	session, err = svc.ActiveSession(ctx, userID)
	if err != nil {
		t.Fatalf("active session: %v", err)
	}
	if session == nil || session.ID != started.ID {
		t.Fatalf("expected active session %d, got %+v", started.ID, session)
	}
	if !session.Active() {
		t.Fatalf("expected session to report active")
	}
}

func TestSettingsCreatedWithDefaultsOnFirstRead(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	settings, err := svc.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.IsTooClose != posture.DefaultTooClose || settings.IsNotSitting != posture.DefaultNotSitting {
		t.Fatalf("expected defaults, got %+v", settings)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_settings WHERE user_id = ?`, userID).Scan(&count); err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one settings row, got %d", count)
	}
}

func TestGetSettingsUnknownUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()

	if _, err := svc.GetSettings(context.Background(), 404); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateSettingsPersistsAndRejectsInvalid(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	updated, err := svc.UpdateSettings(ctx, userID, posture.Thresholds{TooClose: 20, NotSitting: 90})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.IsTooClose != 20 || updated.IsNotSitting != 90 {
		t.Fatalf("unexpected stored pair: %+v", updated)
	}

	_, err = svc.UpdateSettings(ctx, userID, posture.Thresholds{TooClose: 90, NotSitting: 20})
	if err == nil || err.Error() != "isNotSitting must be greater than isTooClose" {
		t.Fatalf("expected ordering error, got %v", err)
	}

	// Rejected writes must not touch the stored pair.
	settings, err := svc.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.IsTooClose != 20 || settings.IsNotSitting != 90 {
		t.Fatalf("stored pair changed after rejected write: %+v", settings)
	}
}

func TestResolveThresholds(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	if got := svc.ResolveThresholds(ctx, userID, nil); got != posture.DefaultThresholds() {
		t.Fatalf("expected defaults before any settings write, got %+v", got)
	}

	if _, err := svc.UpdateSettings(ctx, userID, posture.Thresholds{TooClose: 30, NotSitting: 95}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := svc.ResolveThresholds(ctx, userID, nil); got.TooClose != 30 || got.NotSitting != 95 {
		t.Fatalf("expected stored pair, got %+v", got)
	}

	override := &posture.Thresholds{TooClose: 1, NotSitting: 2}
	if got := svc.ResolveThresholds(ctx, userID, override); got != *override {
		t.Fatalf("expected override to win, got %+v", got)
	}
}

func TestRecordReadingRequiresActiveSession(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	if _, err := svc.RecordReading(ctx, userID, 50, nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if _, err := svc.RecordReading(ctx, 9999, 50, nil); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for unknown user, got %v", err)
	}
}

func TestRecordReadingClassifies(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")
	if _, err := svc.StartSession(ctx, userID, 25); err != nil {
		t.Fatalf("start session: %v", err)
	}

	reading, err := svc.RecordReading(ctx, userID, 5, nil)
	if err != nil {
		t.Fatalf("record reading: %v", err)
	}
	if !reading.IsTooClose || reading.IsNotSitting {
		t.Fatalf("expected too-close classification, got %+v", reading)
	}

	// A request-supplied pair overrides stored settings for this reading only.
	reading, err = svc.RecordReading(ctx, userID, 5, &posture.Thresholds{TooClose: 2, NotSitting: 4})
	if err != nil {
		t.Fatalf("record reading with override: %v", err)
	}
	if reading.IsTooClose || !reading.IsNotSitting {
		t.Fatalf("expected not-sitting under override, got %+v", reading)
	}
}

func TestListReadingsOrderedOldestFirst(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")
	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	for _, d := range []float64{40, 41, 42} {
		if _, err := svc.RecordReading(ctx, userID, d, nil); err != nil {
			t.Fatalf("record reading: %v", err)
		}
	}
	readings, err := svc.ListReadings(ctx, session.ID)
	if err != nil {
		t.Fatalf("list readings: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i, want := range []float64{40, 41, 42} {
		if readings[i].Distance != want {
			t.Fatalf("reading %d: distance %v, want %v", i, readings[i].Distance, want)
		}
	}
}

func TestAwayNotificationFiresOnceAfterFullWindow(t *testing.T) {
	svc, db, notifier := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")
	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	// Default thresholds: a 100cm distance classifies as not sitting.
	for i := 0; i < awayWindow-1; i++ {
		if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
			t.Fatalf("record reading %d: %v", i, err)
		}
	}
	if notifier.count() != 0 {
		t.Fatalf("notified before the window filled")
	}

	if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
		t.Fatalf("record final reading: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", notifier.count())
	}
	if notifier.calls[0].Address != "ana@example.com" || notifier.calls[0].Name != "Ana" {
		t.Fatalf("unexpected notification target: %+v", notifier.calls[0])
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.AwayNotified {
		t.Fatalf("expected away_notified flag to be set")
	}

	// Further unanimous readings never re-notify the same session.
	for i := 0; i < 10; i++ {
		if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
			t.Fatalf("record reading after notify: %v", err)
		}
	}
	if notifier.count() != 1 {
		t.Fatalf("session notified again, got %d notifications", notifier.count())
	}
}

func TestAwayNotificationRequiresUnanimousWindow(t *testing.T) {
	svc, db, notifier := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")
	if _, err := svc.StartSession(ctx, userID, 25); err != nil {
		t.Fatalf("start session: %v", err)
	}

	// One in-range reading inside every window keeps the streak broken.
	for i := 0; i < awayWindow-1; i++ {
		if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
			t.Fatalf("record reading: %v", err)
		}
	}
	if _, err := svc.RecordReading(ctx, userID, 50, nil); err != nil {
		t.Fatalf("record in-range reading: %v", err)
	}
	for i := 0; i < awayWindow-1; i++ {
		if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
			t.Fatalf("record reading: %v", err)
		}
	}
	if notifier.count() != 0 {
		t.Fatalf("expected no notification without a unanimous window, got %d", notifier.count())
	}

	// The streak completes one reading later.
	if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
		t.Fatalf("record reading: %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected notification once streak completed, got %d", notifier.count())
	}
}

func TestAwayNotificationSkippedWithoutEmail(t *testing.T) {
	svc, db, notifier := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Anon", "")
	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	for i := 0; i < awayWindow+5; i++ {
		if _, err := svc.RecordReading(ctx, userID, 100, nil); err != nil {
			t.Fatalf("record reading: %v", err)
		}
	}
	if notifier.count() != 0 {
		t.Fatalf("notified a user without an email address")
	}
	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.AwayNotified {
		t.Fatalf("flag set although no notification was possible")
	}
}

func TestUpdateUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	user, err := svc.UpdateUser(ctx, userID, "  Ana Lima  ", " ana.lima@example.com ")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if user.Name != "Ana Lima" || user.Email != "ana.lima@example.com" {
		t.Fatalf("expected trimmed fields, got %+v", user)
	}

	if _, err := svc.UpdateUser(ctx, 9999, "x", "y"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDashboardSummary(t *testing.T) {
	svc, db, _ := newTestService(t)
	defer db.Close()
	ctx := context.Background()
	userID := createUser(t, db, "Ana", "ana@example.com")

	summary, err := svc.Dashboard(ctx, userID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.PostureScore != "No sessions yet" {
		t.Fatalf("expected empty-state posture score, got %q", summary.PostureScore)
	}

	session, err := svc.StartSession(ctx, userID, 25)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	focused, away := 80.0, 20.0
	score := "Good"
	if _, err := svc.EndSession(ctx, session.ID, &focused, &away, &score); err != nil {
		t.Fatalf("end session: %v", err)
	}

	summary, err = svc.Dashboard(ctx, userID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(summary.SessionsToday) != 1 {
		t.Fatalf("expected one session today, got %d", len(summary.SessionsToday))
	}
	if summary.AvgFocusedPerc != 80 || summary.AvgAwayPerc != 20 {
		t.Fatalf("unexpected averages: %+v", summary)
	}
	if summary.PostureScore != "Good" {
		t.Fatalf("expected posture score Good, got %q", summary.PostureScore)
	}
	day := session.StartedAt.Format("2006-01-02")
	if summary.SessionsPerDay[day] != 1 {
		t.Fatalf("expected one session on %s, got %+v", day, summary.SessionsPerDay)
	}

	if _, err := svc.Dashboard(ctx, 9999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for unknown user, got %v", err)
	}
}
