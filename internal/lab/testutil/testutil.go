// Package testutil はハンドラ・サービスのテスト共通部品。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/auth"
	"RACE-backend/internal/platform/db"
)

const (
	JWTSecret      = "test-jwt-secret"
	ApprovalSecret = "test-approval-secret"
)

// ---------- clock / ids ----------

// Clock は手で進める時計。各パッケージの Clock を満たす
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// SeqID は "0001", "0002", ... を返す IDGen
type SeqID struct {
	mu sync.Mutex
	n  int
}

func (g *SeqID) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%04d", g.n), nil
}

// ---------- identities ----------

func Student() auth.Identity {
	return auth.Identity{
		Email: "ch.en.u4rai23001@ch.students.amrita.edu", Role: auth.RoleStudent,
		Name: "Student 23001", Department: "Robotics & AI", Year: "3rd Year",
	}
}

func OtherStudent() auth.Identity {
	return auth.Identity{
		Email: "ch.en.u4cse24017@ch.students.amrita.edu", Role: auth.RoleStudent,
		Name: "Student 24017", Department: "Computer Science", Year: "2nd Year",
	}
}

func Faculty() auth.Identity {
	return auth.Identity{Email: "faculty@lab.test", Role: auth.RoleFaculty, Name: "Dr. Faculty", Department: "Robotics & AI"}
}

func Mentor() auth.Identity {
	return auth.Identity{Email: "mentor@lab.test", Role: auth.RoleMentor, Name: "Mentor"}
}

func HOD() auth.Identity {
	return auth.Identity{Email: "hod@lab.test", Role: auth.RoleHOD, Name: "HOD"}
}

func Incharge() auth.Identity {
	return auth.Identity{Email: "incharge@lab.test", Role: auth.RoleAdmin, Name: "Lab Incharge"}
}

func Technician() auth.Identity {
	return auth.Identity{Email: "tech@lab.test", Role: auth.RoleTechnician, Name: "Technician"}
}

// ---------- http ----------

func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup は RequireAuth 付きのグループ
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, auth.RequireAuth([]byte(JWTSecret)))
}

// Token は RequireAuth が受け付ける Bearer トークン
func Token(id auth.Identity) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id.Email,
		"role": id.Role,
		"name": id.Name,
		"dept": id.Department,
		"year": id.Year,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	return s
}

func DoRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	buf := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ParseResponse(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

// ErrorCode はエラーエンベロープの code を取り出す
func ErrorCode(w *httptest.ResponseRecorder) string {
	body := ParseResponse(w)
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

// ---------- fixtures ----------

// SeedComponent は not_working = total - working, issued = 0 で部品を登録する
func SeedComponent(t *testing.T, st store.Store, id, name string, total, working int) model.Component {
	t.Helper()
	c := model.Component{
		ID: id, Name: name,
		Total: total, Working: working, NotWorking: total - working,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	err := st.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Components().Insert(ctx, c)
	})
	if err != nil {
		t.Fatalf("seed component %q: %v", name, err)
	}
	return c
}

// Component は現在の在庫を読む
func Component(t *testing.T, st store.Store, name string) model.Component {
	t.Helper()
	var c model.Component
	err := st.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		c, err = tx.Components().Get(ctx, name)
		return err
	})
	if err != nil {
		t.Fatalf("get component %q: %v", name, err)
	}
	return c
}

// Requests は台帳の全件（id 昇順）
func Requests(t *testing.T, st store.Store) []model.Request {
	t.Helper()
	var list []model.Request
	err := st.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = tx.Requests().LoadAll(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("load requests: %v", err)
	}
	return list
}

// Events は監査イベントを action で絞って返す（空なら全件）
func Events(t *testing.T, st store.Store, action model.EventAction) []model.Event {
	t.Helper()
	var list []model.Event
	err := st.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = tx.Events().List(ctx, model.EventFilter{Action: action})
		return err
	})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return list
}

// OpenSQLite はマイグレーション済みのインメモリ SQLite。使えない環境ではスキップ
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}
