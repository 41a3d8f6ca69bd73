package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/ledgergate/permission"
)

var (
	errInvalidName   = errors.New("invalid user name")
	errInvalidPerm   = errors.New("unknown permission level")
	errEscalation    = errors.New("cannot grant a permission stronger than your own")
	errUserExists    = errors.New("user already exists")
	errShortPassword = errors.New("password too short")
)

func createDeps(store map[string]CreateUserRecord) CreateUserDeps {
	return CreateUserDeps{
		DefaultPermission: permission.User,
		Now:               func() time.Time { return time.Unix(1700000000, 0) },
		ValidateName: func(name string) error {
			if name == "" || name == "bad name" {
				return errors.New("bad")
			}
			return nil
		},
		CheckPassword: func(p string) error {
			if p == "" {
				return errShortPassword
			}
			return nil
		},
		HashPassword: func(p string) (string, error) { return "hash:" + p, nil },
		CreateUser: func(_ context.Context, rec CreateUserRecord) error {
			if _, ok := store[rec.Name]; ok {
				return errStoreNotFound
			}
			store[rec.Name] = rec
			return nil
		},
		IsUserExists: func(err error) bool { return errors.Is(err, errStoreNotFound) },
		Errors: CreateUserErrors{
			NotReady:            errNotReady,
			InvalidName:         errInvalidName,
			InvalidPermission:   errInvalidPerm,
			PermissionEscalates: errEscalation,
			UserExists:          errUserExists,
			Unavailable:         errUnavailable,
		},
	}
}

func TestRunCreateUserDefaults(t *testing.T) {
	store := map[string]CreateUserRecord{}
	root := &GuardUser{Name: "root", Permission: permission.Root}

	name, err := RunCreateUser(context.Background(), root, CreateUserRequest{Name: "alice", Password: "pw1"}, createDeps(store))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if name != "alice" {
		t.Fatalf("name = %q", name)
	}
	rec := store["alice"]
	if rec.Permission != permission.User || rec.PasswordHash != "hash:pw1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRunCreateUserRejections(t *testing.T) {
	admin := &GuardUser{Name: "admin", Permission: permission.Admin}
	cases := []struct {
		name string
		req  CreateUserRequest
		want error
	}{
		{"bad name", CreateUserRequest{Name: "bad name", Password: "x"}, errInvalidName},
		{"empty password", CreateUserRequest{Name: "carol", Password: ""}, errShortPassword},
		{"unknown level", CreateUserRequest{Name: "carol", Password: "x", Permission: "GOD"}, errInvalidPerm},
		{"escalation", CreateUserRequest{Name: "carol", Password: "x", Permission: "ROOT"}, errEscalation},
	}
	for _, tc := range cases {
		store := map[string]CreateUserRecord{}
		if _, err := RunCreateUser(context.Background(), admin, tc.req, createDeps(store)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
		if len(store) != 0 {
			t.Fatalf("%s: record written on rejection", tc.name)
		}
	}

	store := map[string]CreateUserRecord{}
	if _, err := RunCreateUser(context.Background(), admin, CreateUserRequest{Name: "carol", Password: "x", Permission: "admin"}, createDeps(store)); err != nil {
		t.Fatalf("equal level should be allowed: %v", err)
	}
	if _, err := RunCreateUser(context.Background(), admin, CreateUserRequest{Name: "carol", Password: "y"}, createDeps(store)); !errors.Is(err, errUserExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if store["carol"].PasswordHash != "hash:x" {
		t.Fatal("duplicate overwrote the original")
	}
}

func TestRunChangePassword(t *testing.T) {
	hashes := map[string]string{"alice": "hash:pw1"}
	deps := ChangePasswordDeps{
		HashPassword: func(p string) (string, error) {
			if p == "" {
				return "", errShortPassword
			}
			return "hash:" + p, nil
		},
		UpdatePasswordHash: func(_ context.Context, name, hash string) error {
			if _, ok := hashes[name]; !ok {
				return errStoreNotFound
			}
			hashes[name] = hash
			return nil
		},
		IsUserNotFound: func(err error) bool { return errors.Is(err, errStoreNotFound) },
		Errors: ChangePasswordErrors{
			NotReady:     errNotReady,
			InvalidUTF8:  errors.New("password must be valid UTF-8"),
			UserNotFound: errors.New("user not found"),
			Unavailable:  errUnavailable,
		},
	}

	if err := RunChangePassword(context.Background(), "alice", []byte("new"), deps); err != nil {
		t.Fatalf("change: %v", err)
	}
	if hashes["alice"] != "hash:new" {
		t.Fatalf("hash = %q", hashes["alice"])
	}
	if err := RunChangePassword(context.Background(), "alice", []byte{0xff}, deps); !errors.Is(err, deps.Errors.InvalidUTF8) {
		t.Fatalf("expected utf8 error, got %v", err)
	}
	if err := RunChangePassword(context.Background(), "alice", nil, deps); !errors.Is(err, errShortPassword) {
		t.Fatalf("expected short password, got %v", err)
	}
	if err := RunChangePassword(context.Background(), "ghost", []byte("x"), deps); !errors.Is(err, deps.Errors.UserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if hashes["alice"] != "hash:new" {
		t.Fatal("failed change must not modify the hash")
	}
}
