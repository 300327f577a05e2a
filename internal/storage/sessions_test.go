package storage

import (
	"context"
	"errors"
	"testing"
)

func TestSQLiteStore_CreateSession_Success(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	session := &Session{
		SessionID:       "session-1",
		StartedAtUnixMs: 1700000000000,
		Shell:           "ash",
		OS:              "linux",
		Hostname:        "box",
		Username:        "dev",
		InitialCWD:      "/home/dev",
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Hostname != "box" || got.Username != "dev" || got.InitialCWD != "/home/dev" {
		t.Errorf("GetSession() = %+v", got)
	}
	if got.EndedAtUnixMs != nil {
		t.Errorf("EndedAtUnixMs = %d, want nil", *got.EndedAtUnixMs)
	}
}

func TestSQLiteStore_CreateSession_MinimalFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	createTestSession(t, store, "minimal")

	got, err := store.GetSession(context.Background(), "minimal")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Hostname != "" || got.Username != "" {
		t.Errorf("optional fields = %q/%q, want empty", got.Hostname, got.Username)
	}
}

func TestSQLiteStore_CreateSession_DuplicateID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	createTestSession(t, store, "dup")

	err := store.CreateSession(context.Background(), &Session{
		SessionID: "dup", StartedAtUnixMs: 1, Shell: "ash", OS: "linux", InitialCWD: "/",
	})
	if err == nil {
		t.Error("CreateSession() with duplicate ID should fail")
	}
}

func TestSQLiteStore_CreateSession_Validation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	tests := []struct {
		name    string
		session *Session
	}{
		{"nil", nil},
		{"missing id", &Session{Shell: "ash", OS: "linux", InitialCWD: "/"}},
		{"missing shell", &Session{SessionID: "a", OS: "linux", InitialCWD: "/"}},
		{"missing os", &Session{SessionID: "a", Shell: "ash", InitialCWD: "/"}},
		{"missing cwd", &Session{SessionID: "a", Shell: "ash", OS: "linux"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.CreateSession(context.Background(), tt.session); err == nil {
				t.Error("CreateSession() should fail")
			}
		})
	}
}

func TestSQLiteStore_EndSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	createTestSession(t, store, "ending")

	if err := store.EndSession(ctx, "ending", 1700000099000); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "ending")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.EndedAtUnixMs == nil || *got.EndedAtUnixMs != 1700000099000 {
		t.Errorf("EndedAtUnixMs = %v, want 1700000099000", got.EndedAtUnixMs)
	}

	if err := store.EndSession(ctx, "missing", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("EndSession(missing) error = %v, want ErrSessionNotFound", err)
	}
	if err := store.EndSession(ctx, "", 1); err == nil {
		t.Error("EndSession(\"\") should fail")
	}
}

func TestSQLiteStore_GetSession_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetSession(context.Background(), ""); err == nil {
		t.Error("GetSession(\"\") should fail")
	}
}

func TestSQLiteStore_GetSessionByPrefix(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	createTestSession(t, store, "abc123")
	createTestSession(t, store, "abd456")

	got, err := store.GetSessionByPrefix(ctx, "abc")
	if err != nil {
		t.Fatalf("GetSessionByPrefix() error = %v", err)
	}
	if got.SessionID != "abc123" {
		t.Errorf("SessionID = %s, want abc123", got.SessionID)
	}

	if _, err := store.GetSessionByPrefix(ctx, "ab"); !errors.Is(err, ErrAmbiguousSession) {
		t.Errorf("ambiguous prefix error = %v, want ErrAmbiguousSession", err)
	}
	if _, err := store.GetSessionByPrefix(ctx, "zz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing prefix error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetSessionByPrefix(ctx, ""); err == nil {
		t.Error("empty prefix should fail")
	}
}
