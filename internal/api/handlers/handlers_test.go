package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"

	apiContext "attendr/internal/api/context"
	"attendr/internal/engine/card"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/auth"
	"attendr/internal/platform/config"
	"attendr/internal/platform/database"
	"attendr/internal/platform/models"
	"attendr/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db, "../../../migrations"); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, repo *repositories.UserRepository, id, name, role, code string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{
		ID:           id,
		Email:        id + "@lisfa.edu",
		PasswordHash: hash,
		FullName:     name,
		Role:         role,
		Code:         code,
		CreatedAt:    1,
		UpdatedAt:    1,
	}
	if err := repo.Create(u); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
	return u
}

// withRoute injects what the router and auth middleware would.
func withRoute(r *http.Request, claims *auth.Claims, params ...httprouter.Param) *http.Request {
	ctx := context.WithValue(r.Context(), apiContext.Params, httprouter.Params(params))
	if claims != nil {
		ctx = context.WithValue(ctx, apiContext.Claims, claims)
	}
	return r.WithContext(ctx)
}

func decodeCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rr.Body.String(), err)
	}
	return body.Code
}

type failingRenderer struct{}

func (failingRenderer) Generate(card.Input) ([]byte, error) {
	return nil, stderrors.Join(card.ErrGenerationFailed, stderrors.New("boom"))
}

func TestCardHandler_Generate(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	seedUser(t, users, "s1", "Ana María López", models.RoleStudent, "LISFA-0001")
	seedUser(t, users, "p1", "Marta López", models.RoleParent, "")
	seedUser(t, users, "abcdef123", "Luis Pérez", models.RoleStaff, "")

	gen, err := card.NewGenerator(card.DefaultBranding(), card.NewAssetStore(t.TempDir()))
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	h := NewCardHandler(users, gen)

	tests := []struct {
		name     string
		userID   string
		want     int
		wantCode string
	}{
		{"student", "s1", http.StatusOK, ""},
		{"staff without code", "abcdef123", http.StatusOK, ""},
		{"parent", "p1", http.StatusBadRequest, "INELIGIBLE_SUBJECT"},
		{"missing", "nobody", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withRoute(httptest.NewRequest(http.MethodGet, "/api/cards/generate/"+tt.userID, nil), nil,
				httprouter.Param{Key: "user_id", Value: tt.userID})
			rr := httptest.NewRecorder()
			h.Generate(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want != http.StatusOK {
				if got := decodeCode(t, rr); got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
				return
			}
			if got := rr.Header().Get("Content-Type"); got != "application/pdf" {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rr.Header().Get("Cache-Control"); got != "no-cache" {
				t.Errorf("Cache-Control = %q", got)
			}
			if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
				t.Error("body is not a PDF")
			}
		})
	}

	req := withRoute(httptest.NewRequest(http.MethodGet, "/", nil), nil, httprouter.Param{Key: "user_id", Value: "s1"})
	rr := httptest.NewRecorder()
	h.Generate(rr, req)
	if want := "attachment; filename=Ana_María_López_carnet.pdf"; rr.Header().Get("Content-Disposition") != want {
		t.Errorf("Content-Disposition = %q, want %q", rr.Header().Get("Content-Disposition"), want)
	}

	failing := NewCardHandler(users, failingRenderer{})
	rr = httptest.NewRecorder()
	failing.Generate(rr, req)
	if rr.Code != http.StatusInternalServerError || decodeCode(t, rr) != "GENERATION_FAILED" {
		t.Errorf("failing renderer: status = %d body = %s", rr.Code, rr.Body.String())
	}
}

type countingRenderer struct {
	calls int
}

func (c *countingRenderer) Generate(card.Input) ([]byte, error) {
	c.calls++
	return []byte("%PDF-1.4 test"), nil
}

type recordedAudit struct {
	entries []audit.Entry
}

func (a *recordedAudit) Record(e audit.Entry) {
	a.entries = append(a.entries, e)
}

func TestCardHandler_CacheAndAudit(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	seedUser(t, users, "s1", "Ana López", models.RoleStudent, "LISFA-0001")

	renderer := &countingRenderer{}
	trail := &recordedAudit{}
	h := NewCardHandler(users, renderer).WithCache(card.NewCache(time.Minute, nil)).WithAudit(trail)

	generate := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/cards/generate/s1", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		req = withRoute(req, &auth.Claims{UserID: "admin1", Role: models.RoleAdmin}, httprouter.Param{Key: "user_id", Value: "s1"})
		rr := httptest.NewRecorder()
		h.Generate(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := generate(); rr.Code != http.StatusOK || rr.Body.String() != "%PDF-1.4 test" {
			t.Fatalf("Generate() #%d = %d %q", i, rr.Code, rr.Body.String())
		}
	}
	if renderer.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", renderer.calls)
	}

	// a profile change invalidates the cached card
	if _, err := users.UpdatePhoto("s1", "/static/uploads/s1.png", 2); err != nil {
		t.Fatal(err)
	}
	generate()
	if renderer.calls != 2 {
		t.Errorf("renderer calls after update = %d, want 2", renderer.calls)
	}

	if len(trail.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(trail.entries))
	}
	e := trail.entries[0]
	if e.UserID != "admin1" || e.Action != audit.ActionCardGenerated || e.ResourceID != "s1" || e.IPAddress != "192.0.2.1" {
		t.Errorf("audit entry = %+v", e)
	}
	if !strings.Contains(e.UserAgent, "Firefox") {
		t.Errorf("UserAgent = %q", e.UserAgent)
	}
}

func TestCardHandler_CacheFollowsCardContent(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	u := seedUser(t, users, "s1", "Ana López", models.RoleStudent, "LISFA-0001")

	root := t.TempDir()
	renderer := &countingRenderer{}
	h := NewCardHandler(users, renderer).WithCache(card.NewCache(time.Minute, card.NewAssetStore(root)))

	generate := func() {
		t.Helper()
		req := withRoute(httptest.NewRequest(http.MethodGet, "/api/cards/generate/s1", nil), nil,
			httprouter.Param{Key: "user_id", Value: "s1"})
		rr := httptest.NewRecorder()
		h.Generate(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Generate() status = %d: %s", rr.Code, rr.Body.String())
		}
	}
	expectRenders := func(want int, step string) {
		t.Helper()
		if renderer.calls != want {
			t.Errorf("%s: renderer calls = %d, want %d", step, renderer.calls, want)
		}
	}

	generate()
	expectRenders(1, "first request")

	// same updated_at second, different name
	u.FullName = "Ana María López"
	if _, err := users.Update(u); err != nil {
		t.Fatal(err)
	}
	generate()
	expectRenders(2, "rename within the same second")
	generate()
	expectRenders(2, "repeat after rename")

	dir := filepath.Join(root, "static", "uploads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	photo := filepath.Join(dir, "s1.png")
	if err := os.WriteFile(photo, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := users.UpdatePhoto("s1", "/static/uploads/s1.png", u.UpdatedAt); err != nil {
		t.Fatal(err)
	}
	generate()
	expectRenders(3, "photo set")

	// re-upload to the same path without touching the user row
	if err := os.WriteFile(photo, []byte("second photo"), 0644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(photo, later, later); err != nil {
		t.Fatal(err)
	}
	generate()
	expectRenders(4, "photo file replaced")
	generate()
	expectRenders(4, "repeat after photo replaced")
}

func TestCardIdentifier(t *testing.T) {
	tests := []struct {
		user models.User
		want string
	}{
		{models.User{ID: "abcdef99", Role: models.RoleStudent, Code: "LISFA-0003"}, "LISFA-0003"},
		{models.User{ID: "abcdef99", Role: models.RoleStudent}, "ESTABCDEF"},
		{models.User{ID: "abcdef99", Role: models.RoleTeacher}, "DOCABCDEF"},
		{models.User{ID: "abcdef99", Role: models.RoleAdmin}, "ADMABCDEF"},
		{models.User{ID: "abc", Role: models.RoleStaff}, "PERABC"},
	}
	for _, tt := range tests {
		if got := cardIdentifier(&tt.user); got != tt.want {
			t.Errorf("cardIdentifier(%+v) = %s, want %s", tt.user, got, tt.want)
		}
	}
}

func TestUserCode(t *testing.T) {
	tests := []struct {
		role   string
		number int
		want   string
	}{
		{models.RoleStudent, 1, "LISFA-0001"},
		{models.RoleStudent, 42, "LISFA-0042"},
		{models.RoleTeacher, 0, "DOC1A2B3C"},
		{models.RoleAdmin, 0, "ADM1A2B3C"},
		{models.RoleStaff, 0, "PER1A2B3C"},
		{models.RoleParent, 0, ""},
	}
	for _, tt := range tests {
		if got := userCode("LISFA", tt.role, "1a2b3c4d-0000", tt.number); got != tt.want {
			t.Errorf("userCode(%s, %d) = %s, want %s", tt.role, tt.number, got, tt.want)
		}
	}
}

func TestAuthHandler_StudentCodesAfterDelete(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	h := NewAuthHandler(users, tokens, "LISFA")

	register := func(name string) models.User {
		t.Helper()
		body := `{"email":"` + name + `@lisfa.edu","password":"secret123","full_name":"` + name + `","role":"student"}`
		rr := httptest.NewRecorder()
		h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
		if rr.Code != http.StatusCreated {
			t.Fatalf("register(%s) status = %d: %s", name, rr.Code, rr.Body.String())
		}
		var u models.User
		json.Unmarshal(rr.Body.Bytes(), &u)
		return u
	}

	register("ana")
	bruno := register("bruno")
	carla := register("carla")
	if _, err := users.Delete(bruno.ID); err != nil {
		t.Fatal(err)
	}

	diego := register("diego")
	if diego.Code != "LISFA-0004" {
		t.Errorf("code after delete = %s, want LISFA-0004", diego.Code)
	}
	got, err := users.GetByCode(carla.Code)
	if err != nil || got == nil || got.ID != carla.ID {
		t.Errorf("GetByCode(%s) = %v, %v; want carla", carla.Code, got, err)
	}

	if _, err := users.Delete(diego.ID); err != nil {
		t.Fatal(err)
	}
	if emilia := register("emilia"); emilia.Code != "LISFA-0005" {
		t.Errorf("code after deleting the newest = %s, want LISFA-0005", emilia.Code)
	}
}

func TestAuthHandler_RegisterRejectsOversizedCode(t *testing.T) {
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	tests := []struct {
		name string
		tag  string
		last string
	}{
		{"numbering past 9999", "LISFA", "LISFA-9999"},
		{"long tag", "LISFAX", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := repositories.NewUserRepository(setupTestDB(t))
			if tt.last != "" {
				seedUser(t, users, "s1", "Ana", models.RoleStudent, tt.last)
			}
			h := NewAuthHandler(users, tokens, tt.tag)

			body := `{"email":"new@lisfa.edu","password":"secret123","full_name":"Nuevo","role":"student"}`
			rr := httptest.NewRecorder()
			h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
			if rr.Code != http.StatusConflict {
				t.Fatalf("status = %d, want 409: %s", rr.Code, rr.Body.String())
			}
			if u, _ := users.GetByEmail("new@lisfa.edu"); u != nil {
				t.Errorf("user created with code %s", u.Code)
			}
		})
	}
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	h := NewAuthHandler(users, tokens, "LISFA")

	register := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
		return rr
	}

	rr := register(`{"email":"Ana@LISFA.edu","password":"secret123","full_name":"Ana López","role":"student","category":"Kinder"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rr.Code, rr.Body.String())
	}
	var created models.User
	json.Unmarshal(rr.Body.Bytes(), &created)
	if created.Code != "LISFA-0001" || created.Email != "ana@lisfa.edu" {
		t.Errorf("created = %+v", created)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Error("response leaks password hash")
	}

	rr = register(`{"email":"bruno@lisfa.edu","password":"secret123","full_name":"Bruno","role":"student"}`)
	json.Unmarshal(rr.Body.Bytes(), &created)
	if created.Code != "LISFA-0002" {
		t.Errorf("second student code = %s, want LISFA-0002", created.Code)
	}

	bad := []struct {
		body string
		want int
	}{
		{`{"email":"ana@lisfa.edu","password":"secret123","full_name":"Dup","role":"student"}`, http.StatusConflict},
		{`{"email":"x@lisfa.edu","password":"123","full_name":"Short","role":"student"}`, http.StatusBadRequest},
		{`{"email":"x@lisfa.edu","password":"secret123","full_name":"Role","role":"janitor"}`, http.StatusBadRequest},
		{`{"email":"not-an-email","password":"secret123","full_name":"E","role":"student"}`, http.StatusBadRequest},
		{`{`, http.StatusBadRequest},
	}
	for _, tt := range bad {
		if rr := register(tt.body); rr.Code != tt.want {
			t.Errorf("register(%s) status = %d, want %d", tt.body, rr.Code, tt.want)
		}
	}

	login := func(email, password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(LoginRequest{Email: email, Password: password})
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
		return rr
	}

	rr = login("ana@lisfa.edu", "secret123")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp LoginResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	claims, err := tokens.ValidateToken(resp.AccessToken)
	if err != nil || claims.Role != models.RoleStudent {
		t.Errorf("access token claims = %+v, %v", claims, err)
	}

	for _, creds := range [][2]string{{"ana@lisfa.edu", "wrong"}, {"ghost@lisfa.edu", "secret123"}} {
		rr := login(creds[0], creds[1])
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("login(%s) status = %d, want 401", creds[0], rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Invalid email or password") {
			t.Errorf("login(%s) body = %s", creds[0], rr.Body.String())
		}
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: resp.RefreshToken})
	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Errorf("refresh status = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthHandler_Bootstrap(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	h := NewAuthHandler(users, tokens, "LISFA")

	body := `{"email":"admin@lisfa.edu","password":"secret123","full_name":"Admin","role":"student"}`
	rr := httptest.NewRecorder()
	h.Bootstrap(rr, httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("bootstrap status = %d: %s", rr.Code, rr.Body.String())
	}
	var u models.User
	json.Unmarshal(rr.Body.Bytes(), &u)
	if u.Role != models.RoleAdmin || !strings.HasPrefix(u.Code, "ADM") {
		t.Errorf("bootstrap user = %+v", u)
	}

	body = `{"email":"second@lisfa.edu","password":"secret123","full_name":"Second"}`
	rr = httptest.NewRecorder()
	h.Bootstrap(rr, httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", strings.NewReader(body)))
	if rr.Code != http.StatusForbidden {
		t.Errorf("second bootstrap status = %d, want 403", rr.Code)
	}
}

func TestLegacyPasswordIsUpgradedOnLogin(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	h := NewAuthHandler(users, tokens, "LISFA")

	u := seedUser(t, users, "t1", "Carla Ruiz", models.RoleTeacher, "DOCT1")
	sum := sha256.Sum256([]byte("legacy-passsalt"))
	legacy := "salt$" + hex.EncodeToString(sum[:])
	if err := users.UpdatePassword(u.ID, legacy, 2); err != nil {
		t.Fatal(err)
	}

	login := func(password string) int {
		body, _ := json.Marshal(LoginRequest{Email: u.Email, Password: password})
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
		return rr.Code
	}

	if code := login("wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", code)
	}
	got, _ := users.GetByID(u.ID)
	if got.PasswordHash != legacy {
		t.Error("hash changed after failed login")
	}

	if code := login("legacy-pass"); code != http.StatusOK {
		t.Fatalf("legacy login status = %d", code)
	}
	got, _ = users.GetByID(u.ID)
	if !strings.HasPrefix(got.PasswordHash, "$2") {
		t.Errorf("hash not upgraded: %q", got.PasswordHash)
	}
	if code := login("legacy-pass"); code != http.StatusOK {
		t.Errorf("login after upgrade status = %d", code)
	}
}

func TestUserHandler_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	seedUser(t, users, "s1", "Ana López", models.RoleStudent, "LISFA-0001")
	h := NewUserHandler(users, t.TempDir(), 1<<20)

	body := `{"id":"hijack","password":"x","created_at":5,"full_name":"Ana María López","category":"Kinder"}`
	req := withRoute(httptest.NewRequest(http.MethodPut, "/api/users/s1", strings.NewReader(body)), nil,
		httprouter.Param{Key: "user_id", Value: "s1"})
	rr := httptest.NewRecorder()
	h.Update(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}

	got, _ := users.GetByID("s1")
	if got.FullName != "Ana María López" || got.Category != "Kinder" || got.CreatedAt != 1 {
		t.Errorf("after update = %+v", got)
	}
	if ok := auth.VerifyPassword("secret123", got.PasswordHash); !ok {
		t.Error("password changed by update")
	}

	seedUser(t, users, "s2", "Bruno Díaz", models.RoleStudent, "LISFA-0002")
	codes := []struct {
		code string
		want int
	}{
		{"LISFA-10000", http.StatusBadRequest},
		{"lisfa-0002", http.StatusConflict},
		{"lisfa-0001", http.StatusOK},
		{"LISFA-0100", http.StatusOK},
	}
	for _, tt := range codes {
		req := withRoute(httptest.NewRequest(http.MethodPut, "/api/users/s1", strings.NewReader(`{"code":"`+tt.code+`"}`)), nil,
			httprouter.Param{Key: "user_id", Value: "s1"})
		rr := httptest.NewRecorder()
		h.Update(rr, req)
		if rr.Code != tt.want {
			t.Errorf("update code %s status = %d, want %d", tt.code, rr.Code, tt.want)
		}
	}
	if got, _ := users.GetByID("s1"); got.Code != "LISFA-0100" {
		t.Errorf("code after updates = %s, want LISFA-0100", got.Code)
	}

	req = withRoute(httptest.NewRequest(http.MethodPut, "/api/users/ghost", strings.NewReader(`{}`)), nil,
		httprouter.Param{Key: "user_id", Value: "ghost"})
	rr = httptest.NewRecorder()
	h.Update(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", rr.Code)
	}

	for i, want := range []int{http.StatusOK, http.StatusNotFound} {
		req := withRoute(httptest.NewRequest(http.MethodDelete, "/api/users/s1", nil), nil,
			httprouter.Param{Key: "user_id", Value: "s1"})
		rr := httptest.NewRecorder()
		h.Delete(rr, req)
		if rr.Code != want {
			t.Errorf("delete #%d status = %d, want %d", i+1, rr.Code, want)
		}
	}
}

func TestUserHandler_UploadPhoto(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	seedUser(t, users, "s1", "Ana López", models.RoleStudent, "LISFA-0001")
	root := t.TempDir()
	h := NewUserHandler(users, root, 1<<20)

	upload := func(filename string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", filename)
		fw.Write(content)
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/users/s1/upload-photo", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req = withRoute(req, nil, httprouter.Param{Key: "user_id", Value: "s1"})
		rr := httptest.NewRecorder()
		h.UploadPhoto(rr, req)
		return rr
	}

	rr := upload("me.JPG", []byte("jpeg bytes"))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rr.Code, rr.Body.String())
	}
	stored, err := os.ReadFile(filepath.Join(root, "static", "uploads", "s1.jpg"))
	if err != nil || string(stored) != "jpeg bytes" {
		t.Errorf("stored file = %q, %v", stored, err)
	}
	got, _ := users.GetByID("s1")
	if got.PhotoURL != "/static/uploads/s1.jpg" {
		t.Errorf("PhotoURL = %q", got.PhotoURL)
	}

	if rr := upload("me.exe", []byte("x")); rr.Code != http.StatusBadRequest {
		t.Errorf("exe upload status = %d, want 400", rr.Code)
	}
}

func TestUserHandler_Categories(t *testing.T) {
	h := NewUserHandler(nil, "", 0)
	rr := httptest.NewRecorder()
	h.Categories(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	var got map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got["student"]) != 19 || len(got["staff"]) != 7 || len(got["teacher"]) != 7 || len(got["admin"]) != 7 {
		t.Errorf("category sizes = %d/%d/%d/%d", len(got["student"]), len(got["staff"]), len(got["teacher"]), len(got["admin"]))
	}
}

func TestParentHandler_Link(t *testing.T) {
	db := setupTestDB(t)
	users := repositories.NewUserRepository(db)
	parents := repositories.NewParentRepository(db)
	seedUser(t, users, "s1", "Ana López", models.RoleStudent, "LISFA-0001")
	seedUser(t, users, "s2", "Bruno López", models.RoleStudent, "LISFA-0002")
	seedUser(t, users, "p1", "Marta López", models.RoleParent, "")
	h := NewParentHandler(users, parents)

	link := func(url, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(http.MethodPost, url, nil)
		} else {
			req = httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
		}
		rr := httptest.NewRecorder()
		h.Link(rr, req)
		return rr
	}

	rr := link("/api/parents/link?parent_user_id=p1&student_id=s1&notification_email=marta@example.com", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("link status = %d: %s", rr.Code, rr.Body.String())
	}
	rr = link("/api/parents/link", `{"parent_user_id":"p1","student_id":"s2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("link status = %d: %s", rr.Code, rr.Body.String())
	}
	// repeated link is idempotent
	if rr := link("/api/parents/link", `{"parent_user_id":"p1","student_id":"s2"}`); rr.Code != http.StatusOK {
		t.Errorf("relink status = %d", rr.Code)
	}

	p, err := parents.Get("p1")
	if err != nil || p == nil {
		t.Fatalf("Get() = %v, %v", p, err)
	}
	if len(p.StudentIDs) != 2 || p.NotificationEmail != "marta@example.com" {
		t.Errorf("parent = %+v", p)
	}

	bad := []struct {
		body string
		want int
	}{
		{`{"parent_user_id":"s1","student_id":"s2"}`, http.StatusNotFound},
		{`{"parent_user_id":"p1","student_id":"p1"}`, http.StatusNotFound},
		{`{"parent_user_id":"p1"}`, http.StatusBadRequest},
		{`{"parent_user_id":"p1","student_id":"s1","notification_email":"nope"}`, http.StatusBadRequest},
	}
	for _, tt := range bad {
		if rr := link("/api/parents/link", tt.body); rr.Code != tt.want {
			t.Errorf("link(%s) status = %d, want %d", tt.body, rr.Code, tt.want)
		}
	}

	req := withRoute(httptest.NewRequest(http.MethodGet, "/api/students/s1/parents", nil), nil,
		httprouter.Param{Key: "student_id", Value: "s1"})
	rr = httptest.NewRecorder()
	h.ByStudent(rr, req)
	var contacts []models.ParentContact
	json.Unmarshal(rr.Body.Bytes(), &contacts)
	if len(contacts) != 1 || contacts[0].ParentName != "Marta López" {
		t.Errorf("contacts = %+v", contacts)
	}

	req = withRoute(httptest.NewRequest(http.MethodGet, "/api/parents/p1/students", nil), nil,
		httprouter.Param{Key: "user_id", Value: "p1"})
	rr = httptest.NewRecorder()
	h.Students(rr, req)
	var students []models.User
	json.Unmarshal(rr.Body.Bytes(), &students)
	if len(students) != 2 {
		t.Errorf("students = %d, want 2", len(students))
	}

	req = withRoute(httptest.NewRequest(http.MethodGet, "/api/parents/s1", nil), nil,
		httprouter.Param{Key: "user_id", Value: "s1"})
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Get(non-parent) status = %d, want 404", rr.Code)
	}
}
