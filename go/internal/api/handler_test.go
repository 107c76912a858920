package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/internal/events"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/questions"
	"github.com/mcdev12/classroom/go/internal/session"
)

type testServer struct {
	*httptest.Server
	clock   *clockwork.FakeClock
	manager *session.Manager
}

func newTestServer(t *testing.T, token string, expected int) *testServer {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	app := questions.NewApp(questions.NewMemoryRepository(clock), 7200)
	manager := session.NewManager(app, events.NewLogPublisher(), clock, session.Config{
		DefaultExpectedStudents: expected,
		EndGrace:                5 * time.Second,
	})

	mux := http.NewServeMux()
	NewHandler(manager).RegisterRoutes(mux)
	srv := httptest.NewServer(RequireToken(token, mux))

	t.Cleanup(func() {
		srv.Close()
		manager.Close()
	})
	return &testServer{Server: srv, clock: clock, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path string, body any, dst any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			r = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHandler_QueueEmpty(t *testing.T) {
	s := newTestServer(t, "", 0)

	for _, path := range []string{"/api/peekProblem", "/api/getProblem?student=a@school.edu"} {
		var resp ProblemResponse
		if code := s.do(t, http.MethodGet, path, nil, &resp); code != http.StatusOK {
			t.Fatalf("%s code = %d", path, code)
		}
		if resp.Status != StatusQueueEmpty || resp.HasProblem() {
			t.Errorf("%s = %+v", path, resp)
		}
	}

	var st models.SessionStatus
	s.do(t, http.MethodGet, "/api/questionStatus", nil, &st)
	if st.Active {
		t.Error("status must be inactive with no problem")
	}
}

func TestHandler_CreatePeekSubmitList(t *testing.T) {
	s := newTestServer(t, "", 1)
	duration := 120

	var created CreateProblemResponse
	code := s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "fizzbuzz", Duration: &duration}, &created)
	if code != http.StatusOK || created.Status != StatusReceived {
		t.Fatalf("createProblem = %d %+v", code, created)
	}

	var peek ProblemResponse
	s.do(t, http.MethodGet, "/api/peekProblem", nil, &peek)
	if !peek.HasProblem() || *peek.QuestionID != created.QuestionID || peek.Prompt != "fizzbuzz" || *peek.Duration != 120 {
		t.Fatalf("peekProblem = %+v", peek)
	}

	var got ProblemResponse
	s.do(t, http.MethodGet, "/api/getProblem?student=a@school.edu", nil, &got)
	if !got.HasProblem() {
		t.Fatalf("getProblem = %+v", got)
	}

	var submitted StatusResponse
	code = s.do(t, http.MethodPost, "/api/studentAnswers", models.AnswerSubmission{
		QuestionID:   &created.QuestionID,
		StudentEmail: "a@school.edu",
		Code:         "print(1)",
	}, &submitted)
	if code != http.StatusOK || submitted.Status != StatusReceived {
		t.Fatalf("studentAnswers = %d %+v", code, submitted)
	}

	var st models.SessionStatus
	s.do(t, http.MethodGet, "/api/questionStatus", nil, &st)
	if !st.Active || st.ResponsesReceived != 1 || !st.AllResponded || st.StudentsStarted != 1 {
		t.Errorf("questionStatus = %+v", st)
	}
	if st.TimeRemaining == nil || *st.TimeRemaining != 120 {
		t.Errorf("time_remaining = %v, want 120", st.TimeRemaining)
	}

	var list StudentAnswersResponse
	s.do(t, http.MethodGet, "/api/getStudentAnswers", nil, &list)
	if list.Status != StatusOK || len(list.Questions) != 1 {
		t.Fatalf("getStudentAnswers = %+v", list)
	}
	q := list.Questions[0]
	if q.ID != created.QuestionID || q.AnswerCount != 1 || q.Answers[0].StudentID != "a@school.edu" {
		t.Errorf("question = %+v", q)
	}
}

func TestHandler_LegacyWrappedAnswer(t *testing.T) {
	s := newTestServer(t, "", 0)
	s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p"}, nil)

	body := `{"studentAnswers":{"studentEmail":"legacy@school.edu","code":"x = 1"}}`
	var resp StatusResponse
	if code := s.do(t, http.MethodPost, "/api/studentAnswers", body, &resp); code != http.StatusOK {
		t.Fatalf("code = %d, resp = %+v", code, resp)
	}

	var list StudentAnswersResponse
	s.do(t, http.MethodGet, "/api/getStudentAnswers", nil, &list)
	if got := list.Questions[0].Answers[0]; got.StudentID != "legacy@school.edu" || got.Code != "x = 1" {
		t.Errorf("answer = %+v", got)
	}
}

func TestHandler_StudentAnswerErrors(t *testing.T) {
	s := newTestServer(t, "", 0)

	var resp StatusResponse
	code := s.do(t, http.MethodPost, "/api/studentAnswers", models.AnswerSubmission{StudentEmail: "a@school.edu"}, &resp)
	if code != http.StatusConflict || resp.Status != StatusError {
		t.Errorf("no session: %d %+v", code, resp)
	}

	s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p"}, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing email", models.AnswerSubmission{Code: "x"}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
		{"first answer", models.AnswerSubmission{StudentEmail: "a@school.edu"}, http.StatusOK},
		{"duplicate", models.AnswerSubmission{StudentEmail: "a@school.edu"}, http.StatusConflict},
		{"mismatch", `{"studentEmail":"b@school.edu","question_id":"9a1c3f0e-4c1b-4a55-9d0e-2f6b0a4d7c11"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp StatusResponse
			if code := s.do(t, http.MethodPost, "/api/studentAnswers", tt.body, &resp); code != tt.want {
				t.Errorf("code = %d, want %d (%+v)", code, tt.want, resp)
			}
		})
	}
}

func TestHandler_CreateProblemValidation(t *testing.T) {
	s := newTestServer(t, "", 0)
	negative := -1

	var resp StatusResponse
	if code := s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "  "}, &resp); code != http.StatusBadRequest {
		t.Errorf("blank prompt code = %d", code)
	}
	if code := s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p", Duration: &negative}, &resp); code != http.StatusBadRequest {
		t.Errorf("negative duration code = %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/createProblem", CreateProblemRequest{Prompt: "p"}, nil); code != http.StatusMethodNotAllowed {
		t.Errorf("POST createProblem code = %d", code)
	}
}

func TestHandler_EndQuestionSession(t *testing.T) {
	s := newTestServer(t, "", 0)
	s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p"}, nil)

	var resp StatusResponse
	s.do(t, http.MethodPost, "/api/endQuestionSession", nil, &resp)
	if resp.Status != StatusEnded {
		t.Errorf("first end = %+v", resp)
	}
	s.do(t, http.MethodPost, "/api/endQuestionSession", nil, &resp)
	if resp.Status != StatusNoActiveSession {
		t.Errorf("second end = %+v", resp)
	}

	var peek ProblemResponse
	s.do(t, http.MethodGet, "/api/peekProblem", nil, &peek)
	if peek.HasProblem() {
		t.Error("ended session must not be offered")
	}
}

func TestHandler_DeleteQuestion(t *testing.T) {
	s := newTestServer(t, "", 0)
	var created CreateProblemResponse
	s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p"}, &created)

	var resp StatusResponse
	if code := s.do(t, http.MethodDelete, "/api/deleteQuestion/"+created.QuestionID.String(), nil, &resp); code != http.StatusOK || resp.Status != StatusDeleted {
		t.Fatalf("delete = %d %+v", code, resp)
	}
	if code := s.do(t, http.MethodDelete, "/api/deleteQuestion/"+created.QuestionID.String(), nil, &resp); code != http.StatusNotFound {
		t.Errorf("second delete code = %d", code)
	}
	if code := s.do(t, http.MethodDelete, "/api/deleteQuestion/not-a-uuid", nil, &resp); code != http.StatusNotFound {
		t.Errorf("bad id code = %d", code)
	}

	var list StudentAnswersResponse
	s.do(t, http.MethodGet, "/api/getStudentAnswers", nil, &list)
	if list.Questions == nil || len(list.Questions) != 0 {
		t.Errorf("questions = %+v, want empty list", list.Questions)
	}
}

func TestHandler_ServerEndsTimedSessionAfterGrace(t *testing.T) {
	s := newTestServer(t, "", 0)
	duration := 30
	s.do(t, http.MethodPut, "/api/createProblem", CreateProblemRequest{Prompt: "p", Duration: &duration}, nil)

	s.clock.Advance(36 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var st models.SessionStatus
		s.do(t, http.MethodGet, "/api/questionStatus", nil, &st)
		if !st.Active {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session still active after deadline and grace")
}

func TestRequireToken(t *testing.T) {
	s := newTestServer(t, "s3cret", 0)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, s.URL+"/api/questionStatus", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("code = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
