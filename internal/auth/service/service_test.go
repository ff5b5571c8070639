package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	"github.com/openagora/agora/internal/auth/repository"
	"github.com/openagora/agora/internal/authorization"
	"github.com/openagora/agora/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) authdomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.AdminUser{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo, sessionRepo, node)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
		Role:     string(authorization.RoleAnalyst),
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user == nil {
		t.Fatal("expected user")
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if err != authdomain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "strong-password",
		Role:     "warehouse_wizard",
	})
	if err != authdomain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "carol@example.com",
		Password: "strong-password",
		Role:     string(authorization.RoleComplianceOfficer),
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	result, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "carol@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.RawToken == "" {
		t.Fatal("expected raw session token")
	}
	if result.Session.Metadata["role"] != string(authorization.RoleComplianceOfficer) {
		t.Fatalf("expected role in session metadata, got %v", result.Session.Metadata["role"])
	}

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if session.UserID != result.UserID {
		t.Fatalf("expected session for user %v, got %v", result.UserID, session.UserID)
	}

	if err := svc.Logout(context.Background(), result.RawToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), result.RawToken); err != authdomain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	svc := newTestService(t)

	req := authdomain.CreateUserRequest{
		Email:    "dave@example.com",
		Password: "strong-password",
		Role:     string(authorization.RoleInventoryManager),
	}
	if _, err := svc.CreateUser(context.Background(), req); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), req); err != authdomain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}
