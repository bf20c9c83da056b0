package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "auth-test-secret"
	testDomain = "ch.students.amrita.edu"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(NewMemoryStore(), Config{Secret: []byte(testSecret), TokenTTL: time.Hour, StudentDomain: testDomain})
	if err := svc.Register(context.Background(), RegisterInput{
		Email: "tech@lab.test", Password: "s3cret", Role: RoleTechnician, Name: "Tech",
	}); err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestParseStudentEmail(t *testing.T) {
	id, ok := ParseStudentEmail("ch.en.u4rai23001@ch.students.amrita.edu", testDomain)
	if !ok {
		t.Fatal("valid student email rejected")
	}
	want := Identity{
		Email: "ch.en.u4rai23001@ch.students.amrita.edu", Role: RoleStudent, Name: "Student 23001",
		Department: "Robotics & AI", Year: "3rd Year", Campus: "Chennai", School: "School of Engineering",
		RollNumber: "23001",
	}
	if id != want {
		t.Fatalf("got %+v\nwant %+v", id, want)
	}

	// 未知のコードはそのまま大文字で出す
	id, ok = ParseStudentEmail("cb.xx.u4mec19004@CH.STUDENTS.AMRITA.EDU", testDomain)
	if !ok || id.Department != "MEC" || id.Campus != "CB" || id.Year != "Year 19" {
		t.Fatalf("fallback labels: %+v, %v", id, ok)
	}

	for _, bad := range []string{
		"someone@gmail.com",
		"ch.en@ch.students.amrita.edu",
		"ch.en.u4r@ch.students.amrita.edu",
		"not-an-email",
	} {
		if _, ok := ParseStudentEmail(bad, testDomain); ok {
			t.Errorf("ParseStudentEmail(%q) accepted", bad)
		}
	}
}

func TestLoginStaffAndStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "tech@lab.test", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if res.Identity.Role != RoleTechnician || res.Token == "" {
		t.Fatalf("staff login = %+v", res)
	}

	if _, err := svc.Login(ctx, "tech@lab.test", "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("bad password err = %v", err)
	}

	res, err = svc.Login(ctx, "ch.en.u4cse24017@ch.students.amrita.edu", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Identity.Role != RoleStudent || res.Identity.Department != "Computer Science" {
		t.Fatalf("student login = %+v", res.Identity)
	}

	if _, err := svc.Login(ctx, "stranger@example.com", "x"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Register(ctx, RegisterInput{Email: "tech@lab.test", Password: "x", Role: RoleTechnician})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	err = svc.Register(ctx, RegisterInput{Email: "s@lab.test", Password: "x", Role: RoleStudent})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("student role err = %v", err)
	}
	if err := svc.EnsureBootstrapAdmin(ctx, "admin@lab.test", "pw", "Admin"); err != nil {
		t.Fatal(err)
	}
	if err := svc.EnsureBootstrapAdmin(ctx, "admin@lab.test", "pw", "Admin"); err != nil {
		t.Fatalf("second bootstrap err = %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 2 || list[0].Email != "admin@lab.test" {
		t.Fatalf("accounts = %+v", list)
	}
	if err := svc.Delete(ctx, "nobody@lab.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete unknown err = %v", err)
	}
}

func setupRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", RequireAuth([]byte(testSecret)))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/me", func(c *gin.Context) {
		id, ok := MustIdentity(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, id)
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.Login(context.Background(), "tech@lab.test", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	r := setupRouter()

	w := get(r, "Bearer "+res.Token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"technician"`) {
		t.Fatalf("valid token: %d %s", w.Code, w.Body.String())
	}

	for _, h := range []string{"", "Basic abc", "Bearer ", "Bearer not.a.jwt"} {
		if w := get(r, h); w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d", h, w.Code)
		}
	}

	// 期限切れ
	old := NewService(NewMemoryStore(), Config{Secret: []byte(testSecret), TokenTTL: time.Minute, StudentDomain: testDomain}).
		WithClock(fixedClock{time.Now().Add(-time.Hour)})
	expired, err := old.Login(context.Background(), "ch.en.u4rai23001@ch.students.amrita.edu", "")
	if err != nil {
		t.Fatal(err)
	}
	if w := get(r, "Bearer "+expired.Token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status %d", w.Code)
	}

	// 別の鍵で署名
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "x@lab.test", "role": RoleAdmin, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other"))
	if w := get(r, "Bearer "+forged); w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tech, _ := svc.Login(ctx, "tech@lab.test", "s3cret")
	student, _ := svc.Login(ctx, "ch.en.u4rai23001@ch.students.amrita.edu", "")

	r := setupRouter(RoleTechnician, RoleAdmin)
	if w := get(r, "Bearer "+tech.Token); w.Code != http.StatusOK {
		t.Fatalf("technician status %d", w.Code)
	}
	if w := get(r, "Bearer "+student.Token); w.Code != http.StatusForbidden {
		t.Fatalf("student status %d", w.Code)
	}
}
