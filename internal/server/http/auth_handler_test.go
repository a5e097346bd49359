package http

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/zacharykka/prompt-lab/internal/config"
	"github.com/zacharykka/prompt-lab/internal/infra/database"
	"github.com/zacharykka/prompt-lab/internal/infra/repository"
	authsvc "github.com/zacharykka/prompt-lab/internal/service/auth"
)

func setupAuthRouter(t *testing.T, name string) *gin.Engine {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "db", "migrations", "000001_init.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(raw)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	repos := repository.NewSQLRepositories(db, database.NewDialect("sqlite"))
	service := authsvc.NewService(repos.Users, config.AuthConfig{
		AccessTokenSecret:  "test-access-secret-0123456789abcdef",
		RefreshTokenSecret: "test-refresh-secret-0123456789abcdef",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
	}, nil)
	handler := NewAuthHandler(service, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/auth"))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	router := setupAuthRouter(t, "auth_handler.db")

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "long-enough-password",
		"role":     "editor",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register expected 201 got %d body=%s", rec.Code, rec.Body.String())
	}

	var registerResp struct {
		Data struct {
			User struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
			Tokens struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registerResp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if registerResp.Data.User.Role != "editor" {
		t.Fatalf("expected editor role got %s", registerResp.Data.User.Role)
	}
	if registerResp.Data.Tokens.AccessToken == "" || registerResp.Data.Tokens.RefreshToken == "" {
		t.Fatalf("expected token pair in response: %s", rec.Body.String())
	}

	// 重复注册
	dup := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "long-enough-password",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate register expected 409 got %d", dup.Code)
	}

	login := postJSON(t, router, "/auth/login", map[string]string{
		"email":    "Alice@Example.com",
		"password": "long-enough-password",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login expected 200 got %d body=%s", login.Code, login.Body.String())
	}

	bad := postJSON(t, router, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password-here",
	})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad password expected 401 got %d", bad.Code)
	}
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	router := setupAuthRouter(t, "auth_handler_validation.db")

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "long-enough-password",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email expected 400 got %d", rec.Code)
	}

	short := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "bob@example.com",
		"password": "short",
	})
	if short.Code != http.StatusBadRequest {
		t.Fatalf("short password expected 400 got %d", short.Code)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	router := setupAuthRouter(t, "auth_handler_refresh.db")

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"email":    "carol@example.com",
		"password": "long-enough-password",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register expected 201 got %d body=%s", rec.Code, rec.Body.String())
	}
	var registerResp struct {
		Data struct {
			Tokens struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registerResp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}

	refresh := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": registerResp.Data.Tokens.RefreshToken,
	})
	if refresh.Code != http.StatusOK {
		t.Fatalf("refresh expected 200 got %d body=%s", refresh.Code, refresh.Body.String())
	}

	// 访问令牌不能充当刷新令牌
	misuse := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": registerResp.Data.Tokens.AccessToken,
	})
	if misuse.Code != http.StatusUnauthorized {
		t.Fatalf("access token misuse expected 401 got %d", misuse.Code)
	}
}
