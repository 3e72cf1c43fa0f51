package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/minseo-cho/routinelab/internal/i18n"
	"github.com/minseo-cho/routinelab/internal/llm"
	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/store"
)

type testApp struct {
	router  chi.Router
	store   *store.Store
	handler *Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := New(s, llm.New("", "", "test-model"), model.AppConfig{Lang: "en"})
	r := chi.NewRouter()
	h.Routes(r)
	return &testApp{router: r, store: s, handler: h}
}

func (a *testApp) createUser(t *testing.T, username string, role model.UserRole) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := a.store.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := a.do(t, "POST", "/api/auth/login", map[string]string{
		"username": username,
		"password": "secret",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (a *testApp) createRoom(t *testing.T, cookie *http.Cookie, routineType string) model.Room {
	t.Helper()
	rec := a.do(t, "POST", "/api/rooms", map[string]string{
		"title":                 "Clouds",
		"thinking_routine_type": routineType,
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room returned %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Room model.Room `json:"room"`
	}
	decodeBody(t, rec, &out)
	return out.Room
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)

	cookie := app.login(t, "teacher1")

	rec := app.do(t, "GET", "/api/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me returned %d", rec.Code)
	}
	var me struct {
		User userInfo `json:"user"`
	}
	decodeBody(t, rec, &me)
	if me.User.Username != "teacher1" || me.User.Role != model.UserRoleTeacher {
		t.Errorf("me = %+v", me.User)
	}

	rec = app.do(t, "POST", "/api/auth/logout", nil, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d", rec.Code)
	}
	rec = app.do(t, "GET", "/api/auth/me", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout returned %d, want 401", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)

	rec := app.do(t, "POST", "/api/auth/login", map[string]string{
		"username": "teacher1",
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login returned %d, want 401", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Error("expected a localized error message")
	}
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, "POST", "/api/rooms", map[string]string{"title": "x"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create room without auth returned %d, want 401", rec.Code)
	}
}

func TestRoomLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)
	cookie := app.login(t, "teacher1")

	room := app.createRoom(t, cookie, "see-think-wonder")
	if len(room.Code) != 6 {
		t.Fatalf("room code %q, want 6 digits", room.Code)
	}

	// Students can join the active room by code without auth. The seeded
	// template carries the routine's default questions.
	rec := app.do(t, "GET", "/api/join/"+room.Code, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join returned %d: %s", rec.Code, rec.Body.String())
	}
	var join struct {
		Routine struct {
			Steps []string `json:"steps"`
		} `json:"routine"`
		Template *model.RoutineTemplate `json:"template"`
	}
	decodeBody(t, rec, &join)
	if len(join.Routine.Steps) != 3 {
		t.Errorf("join steps = %v, want 3", join.Routine.Steps)
	}
	if join.Template == nil || join.Template.Content.SeeQuestion == "" {
		t.Error("expected seeded template with default questions")
	}

	// Unpublishing hides the room from the join endpoint.
	rec = app.do(t, "PATCH", "/api/rooms/"+room.ID+"/status", map[string]string{"status": "draft"}, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status update returned %d", rec.Code)
	}
	rec = app.do(t, "GET", "/api/join/"+room.Code, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("join of draft room returned %d, want 404", rec.Code)
	}
}

func TestRoomOwnershipEnforced(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)
	app.createUser(t, "teacher2", model.UserRoleTeacher)
	c1 := app.login(t, "teacher1")
	c2 := app.login(t, "teacher2")

	room := app.createRoom(t, c1, "see-think-wonder")

	rec := app.do(t, "GET", "/api/rooms/"+room.ID, nil, c2)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other teacher's get returned %d, want 403", rec.Code)
	}
	rec = app.do(t, "DELETE", "/api/rooms/"+room.ID, nil, c2)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other teacher's delete returned %d, want 403", rec.Code)
	}
}

var testStudent = map[string]string{"name": "Mina", "grade": "5", "class": "2", "number": "17"}

func (a *testApp) studentDo(t *testing.T, roomID, action string, extra map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]any{"student": testStudent}
	for k, v := range extra {
		body[k] = v
	}
	return a.do(t, "POST", "/api/rooms/"+roomID+"/responses/"+action, body, nil)
}

func TestStudentResponseFlow(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)
	cookie := app.login(t, "teacher1")
	room := app.createRoom(t, cookie, "see-think-wonder")

	rec := app.studentDo(t, room.ID, "load", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load returned %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Index     int               `json:"index"`
		Step      string            `json:"step"`
		Submitted bool              `json:"submitted"`
		Data      map[string]string `json:"data"`
	}
	decodeBody(t, rec, &state)
	if state.Index != 0 || state.Step != "see" || state.Submitted {
		t.Fatalf("initial state = %+v", state)
	}

	// Fill the first two steps, then try to submit early.
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "grey clouds"})
	app.studentDo(t, room.ID, "navigate", map[string]any{"direction": "next"})
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "it will rain"})

	rec = app.studentDo(t, room.ID, "submit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("incomplete submit returned %d, want 422", rec.Code)
	}

	app.studentDo(t, room.ID, "navigate", map[string]any{"direction": "next"})
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "why is the sky grey"})

	rec = app.studentDo(t, room.ID, "submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit returned %d: %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		ResponseID string `json:"response_id"`
		Submitted  bool   `json:"submitted"`
	}
	decodeBody(t, rec, &submitted)
	if submitted.ResponseID == "" || !submitted.Submitted {
		t.Fatalf("submit response = %+v", submitted)
	}

	// Further edits and repeat submits are rejected.
	rec = app.studentDo(t, room.ID, "edit", map[string]any{"value": "late edit"})
	if rec.Code != http.StatusConflict {
		t.Errorf("edit after submit returned %d, want 409", rec.Code)
	}
	rec = app.studentDo(t, room.ID, "submit", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second submit returned %d, want 409", rec.Code)
	}

	// The teacher sees one submission.
	rec = app.do(t, "GET", "/api/rooms/"+room.ID+"/submissions", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("list submissions returned %d", rec.Code)
	}
	var subs struct {
		Submissions []model.StudentResponse `json:"submissions"`
	}
	decodeBody(t, rec, &subs)
	if len(subs.Submissions) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs.Submissions))
	}
	if subs.Submissions[0].Data["wonder"] != "why is the sky grey" {
		t.Errorf("stored data = %v", subs.Submissions[0].Data)
	}
}

const reviewAnalysis = `## 1. Step-by-Step Analysis

### See
Clear observation of the cloud cover.

### Think
Reasonable inference about rain.

### Wonder
A genuine question about light scattering.

## 2. Comprehensive Evaluation

Solid work overall.

## 3. Educational Suggestions

Encourage naming specific cloud types.
`

func TestReviewFlow(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)
	cookie := app.login(t, "teacher1")
	room := app.createRoom(t, cookie, "see-think-wonder")

	// One complete student submission.
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "grey clouds"})
	app.studentDo(t, room.ID, "navigate", map[string]any{"direction": "next"})
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "it will rain"})
	app.studentDo(t, room.ID, "navigate", map[string]any{"direction": "next"})
	app.studentDo(t, room.ID, "edit", map[string]any{"value": "why is the sky grey"})
	rec := app.studentDo(t, room.ID, "submit", nil)
	var submitted struct {
		ResponseID string `json:"response_id"`
	}
	decodeBody(t, rec, &submitted)

	base := "/api/responses/" + submitted.ResponseID + "/review"

	rec = app.do(t, "POST", base, map[string]string{"analysis": reviewAnalysis}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("start review returned %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Index   int    `json:"index"`
		Screen  string `json:"screen"`
		Step    string `json:"step"`
		Content string `json:"content"`
	}
	decodeBody(t, rec, &state)
	if state.Screen != "step" || state.Step != "see" {
		t.Fatalf("initial review state = %+v", state)
	}

	// Feedback and score on the first step.
	rec = app.do(t, "POST", base+"/feedback", map[string]string{"text": "good eye"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback returned %d", rec.Code)
	}
	rec = app.do(t, "POST", base+"/score", map[string]int{"score": 4}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("score returned %d", rec.Code)
	}
	rec = app.do(t, "POST", base+"/score", map[string]int{"score": 7}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range score returned %d, want 400", rec.Code)
	}

	// Saving before the final screen is rejected.
	rec = app.do(t, "POST", base+"/save", nil, cookie)
	if rec.Code != http.StatusConflict {
		t.Errorf("early save returned %d, want 409", rec.Code)
	}

	// Walk to the educational screen: 3 steps, comprehensive, educational.
	for range 4 {
		rec = app.do(t, "POST", base+"/navigate", map[string]string{"direction": "next"}, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("navigate returned %d", rec.Code)
		}
	}
	decodeBody(t, rec, &state)
	if state.Screen != "educational" {
		t.Fatalf("screen after walk = %q, want educational", state.Screen)
	}

	rec = app.do(t, "POST", base+"/save", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("save returned %d: %s", rec.Code, rec.Body.String())
	}

	ev, err := app.store.GetEvaluation(context.Background(), submitted.ResponseID)
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if ev == nil {
		t.Fatal("expected a stored evaluation")
	}
	if ev.Feedbacks["see"] != "good eye" || ev.Scores["see"] != 4 {
		t.Errorf("stored evaluation = %+v", ev)
	}

	// The session was dropped after saving.
	rec = app.do(t, "GET", base, nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("review state after save returned %d, want 404", rec.Code)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "POST", "/api/ai/analyze", map[string]any{
		"routineType": "not-a-routine",
		"responses":   map[string]string{"see": "x"},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown routine returned %d, want 400", rec.Code)
	}

	rec = app.do(t, "POST", "/api/ai/analyze", map[string]any{
		"routineType": "see-think-wonder",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing responses returned %d, want 400", rec.Code)
	}

	rec = app.do(t, "GET", "/api/ai/analyze", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET analyze returned %d, want 405", rec.Code)
	}
}

func TestAnalyzeImageValidation(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "POST", "/api/ai/analyze-image", map[string]string{
		"systemPrompt": "x",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields returned %d, want 400", rec.Code)
	}

	// With no credential configured the upstream call fails server-side.
	rec = app.do(t, "POST", "/api/ai/analyze-image", map[string]string{
		"systemPrompt": "s",
		"userPrompt":   "u",
		"imageData":    "aGVsbG8=",
	}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("analysis without credential returned %d, want 500", rec.Code)
	}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" || body.Details == "" {
		t.Errorf("error body = %+v, want error and details", body)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "teacher1", model.UserRoleTeacher)
	app.createUser(t, "admin1", model.UserRoleAdmin)

	teacher := app.login(t, "teacher1")
	rec := app.do(t, "GET", "/api/admin/users", nil, teacher)
	if rec.Code != http.StatusForbidden {
		t.Errorf("teacher on admin route returned %d, want 403", rec.Code)
	}

	admin := app.login(t, "admin1")
	rec = app.do(t, "GET", "/api/admin/users", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list users returned %d", rec.Code)
	}
	var out struct {
		Users []userInfo `json:"users"`
	}
	decodeBody(t, rec, &out)
	if len(out.Users) != 2 {
		t.Errorf("got %d users, want 2", len(out.Users))
	}
}
