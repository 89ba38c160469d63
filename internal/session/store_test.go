package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/mototaxi/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func TestFreshSessionIsLoggedOut(t *testing.T) {
	s, _ := openTemp(t)
	if s.LoggedIn() {
		t.Fatal("missing file should mean logged out")
	}
	if s.Theme() != "light" {
		t.Fatalf("theme = %s, want light default", s.Theme())
	}
}

func TestCredentialsSurviveReopen(t *testing.T) {
	s, path := openTemp(t)
	user := models.User{ID: "u1", Username: "ana"}
	if err := s.SetCredentials("acc", "ref", user); err != nil {
		t.Fatal(err)
	}

	re, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !re.LoggedIn() || re.AccessToken() != "acc" {
		t.Fatal("credentials did not survive a reopen")
	}
	if re.User().Username != "ana" {
		t.Fatalf("user = %+v", re.User())
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("corrupt state must not block startup: %v", err)
	}
	if s.LoggedIn() {
		t.Fatal("corrupt state should be discarded")
	}
}

func TestEvents(t *testing.T) {
	s, _ := openTemp(t)
	var got []Event
	cancel := s.Subscribe(func(ev Event) { got = append(got, ev) })

	_ = s.SetCredentials("acc", "ref", models.User{ID: "u1"})
	_ = s.Clear()
	s.ForceLogout()

	want := []Event{EventLogin, EventLogout, EventForcedLogout}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	cancel()
	_ = s.SetCredentials("acc2", "ref2", models.User{ID: "u1"})
	if len(got) != len(want) {
		t.Fatal("cancelled subscriber still notified")
	}
}

func TestForceLogoutDropsCredentials(t *testing.T) {
	s, _ := openTemp(t)
	_ = s.SetCredentials("acc", "ref", models.User{ID: "u1"})
	s.ForceLogout()
	if s.LoggedIn() {
		t.Fatal("forced logout should drop the token")
	}
	if s.User() != (models.User{}) {
		t.Fatal("forced logout should drop the cached profile")
	}
}

func TestThemeSurvivesLogout(t *testing.T) {
	s, path := openTemp(t)
	_ = s.SetCredentials("acc", "ref", models.User{ID: "u1"})
	if err := s.SetTheme("dark"); err != nil {
		t.Fatal(err)
	}
	_ = s.Clear()

	re, err := Open(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if re.Theme() != "dark" {
		t.Fatalf("theme = %s, want dark preserved across logout", re.Theme())
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestTokenFresh(t *testing.T) {
	s, _ := openTemp(t)
	now := time.Now()

	if s.TokenFresh(now) {
		t.Fatal("no token can never be fresh")
	}

	_ = s.SetCredentials(signedToken(t, now.Add(time.Hour)), "", models.User{ID: "u1"})
	if !s.TokenFresh(now) {
		t.Fatal("an unexpired token should be fresh")
	}

	_ = s.SetCredentials(signedToken(t, now.Add(-time.Minute)), "", models.User{ID: "u1"})
	if s.TokenFresh(now) {
		t.Fatal("an expired token should be stale")
	}

	_ = s.SetCredentials("not-a-jwt", "", models.User{ID: "u1"})
	if s.TokenFresh(now) {
		t.Fatal("garbage tokens should be stale")
	}
}
