package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/ledgergate/session"
)

var (
	errCollision   = errors.New("id exists")
	errUnavailable = errors.New("session unavailable")
)

func issueDeps(w *fakeWorld, stored map[string]*session.Session) IssueSessionDeps {
	ids := 0
	return IssueSessionDeps{
		Guard:    w.deps(),
		Lifetime: 2 * time.Hour,
		NewSessionID: func() (string, error) {
			ids++
			return fmt.Sprintf("id-%d", ids), nil
		},
		CreateSession: func(_ context.Context, s *session.Session) error {
			if _, ok := stored[s.ID]; ok {
				return errCollision
			}
			stored[s.ID] = s
			return nil
		},
		IsIDCollision:  func(err error) bool { return errors.Is(err, errCollision) },
		SignSessionKey: func(s *session.Session) (string, error) { return "key:" + s.ID, nil },
		MetricInc:      w.deps().MetricInc,
		Metrics:        IssueSessionMetrics{SessionCreated: 100, SessionIDCollision: 101, PasswordRehashed: 102},
		Errors:         IssueSessionErrors{NotReady: errNotReady, SessionUnavailable: errUnavailable},
	}
}

func TestRunIssueSession(t *testing.T) {
	w := newFakeWorld()
	stored := map[string]*session.Session{}

	res, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "pw1"}, issueDeps(w, stored))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if res.Key != "key:id-1" {
		t.Fatalf("key = %q", res.Key)
	}
	s := stored["id-1"]
	if s == nil || s.User != "alice" {
		t.Fatalf("session not stored: %+v", stored)
	}
	if !s.Registered.Equal(w.now) || s.Until.Sub(s.Registered) != 2*time.Hour {
		t.Fatalf("unexpected timestamps %+v", s)
	}
	if w.metrics[100] != 1 {
		t.Fatal("session created metric not incremented")
	}
}

func TestRunIssueSessionRequiresPassword(t *testing.T) {
	w := newFakeWorld()
	stored := map[string]*session.Session{}

	_, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "wrong"}, issueDeps(w, stored))
	if !errors.Is(err, errAuthentication) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
	_, err = RunIssueSession(context.Background(), GuardRequest{User: "ghost", Password: "pw1"}, issueDeps(w, stored))
	if !errors.Is(err, errAuthentication) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
	if len(stored) != 0 {
		t.Fatal("no session may be stored without authentication")
	}
}

func TestRunIssueSessionRetriesOnCollision(t *testing.T) {
	w := newFakeWorld()
	stored := map[string]*session.Session{
		"id-1": {ID: "id-1", User: "bob"},
		"id-2": {ID: "id-2", User: "bob"},
	}

	res, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "pw1"}, issueDeps(w, stored))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if res.Session.ID != "id-3" {
		t.Fatalf("expected third id, got %s", res.Session.ID)
	}
	if stored["id-1"].User != "bob" {
		t.Fatal("colliding session overwritten")
	}
	if w.metrics[101] != 2 {
		t.Fatalf("collisions counted = %d", w.metrics[101])
	}
}

func TestRunIssueSessionGivesUpAfterAttempts(t *testing.T) {
	w := newFakeWorld()
	deps := issueDeps(w, map[string]*session.Session{})
	deps.CreateSession = func(context.Context, *session.Session) error { return errCollision }

	if _, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "pw1"}, deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRunIssueSessionStoreFailure(t *testing.T) {
	w := newFakeWorld()
	deps := issueDeps(w, map[string]*session.Session{})
	deps.CreateSession = func(context.Context, *session.Session) error { return errStoreDown }

	if _, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "pw1"}, deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRunIssueSessionRehash(t *testing.T) {
	w := newFakeWorld()
	deps := issueDeps(w, map[string]*session.Session{})
	var updated string
	deps.RehashOnAuth = true
	deps.NeedsRehash = func(hash string) (bool, error) { return hash == "hash:pw1", nil }
	deps.HashPassword = func(p string) (string, error) { return "hash2:" + p, nil }
	deps.UpdatePasswordHash = func(_ context.Context, name, hash string) error {
		updated = name + "=" + hash
		return nil
	}

	if _, err := RunIssueSession(context.Background(), GuardRequest{User: "alice", Password: "pw1"}, deps); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if updated != "alice=hash2:pw1" {
		t.Fatalf("rehash not applied: %q", updated)
	}
	if w.metrics[102] != 1 {
		t.Fatal("rehash metric not incremented")
	}
}
