package classroom_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/clients"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/models"
)

// ClassroomClient talks to the classroom REST API
type ClassroomClient struct {
	*clients.BaseClient
}

// NewClassroomClient creates a client. An empty token sends no Authorization header.
func NewClassroomClient(baseURL, token string) *ClassroomClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &ClassroomClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	if token != "" {
		client.SetHeader(AuthorizationHeader, "Bearer "+token)
	}
	return client
}

// CreateProblem opens a new question session
func (c *ClassroomClient) CreateProblem(ctx context.Context, req api.CreateProblemRequest) (*api.CreateProblemResponse, error) {
	var resp api.CreateProblemResponse
	if err := c.sendJSON(ctx, "PUT", CreateProblemEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PeekProblem returns the active problem without marking the student as started
func (c *ClassroomClient) PeekProblem(ctx context.Context) (*api.ProblemResponse, error) {
	var resp api.ProblemResponse
	if err := c.getJSON(ctx, PeekProblemEndpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProblem returns the active problem and records that student started it
func (c *ClassroomClient) GetProblem(ctx context.Context, student string) (*api.ProblemResponse, error) {
	endpoint := GetProblemEndpoint
	if student != "" {
		endpoint += "?student=" + url.QueryEscape(student)
	}
	var resp api.ProblemResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitAnswer sends a student's answer
func (c *ClassroomClient) SubmitAnswer(ctx context.Context, sub models.AnswerSubmission) error {
	var resp api.StatusResponse
	return c.sendJSON(ctx, "POST", StudentAnswersEndpoint, sub, &resp)
}

// GetStudentAnswers lists every question with its answers
func (c *ClassroomClient) GetStudentAnswers(ctx context.Context) ([]models.Question, error) {
	var resp api.StudentAnswersResponse
	if err := c.getJSON(ctx, GetStudentAnswersEndpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// QuestionStatus reports the active session
func (c *ClassroomClient) QuestionStatus(ctx context.Context) (*models.SessionStatus, error) {
	var resp models.SessionStatus
	if err := c.getJSON(ctx, QuestionStatusEndpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndQuestionSession ends the active session. It reports whether one was open.
func (c *ClassroomClient) EndQuestionSession(ctx context.Context) (bool, error) {
	var resp api.StatusResponse
	if err := c.sendJSON(ctx, "POST", EndQuestionSessionEndpoint, nil, &resp); err != nil {
		return false, err
	}
	return resp.Status == api.StatusEnded, nil
}

// DeleteQuestion deletes a question and its answers
func (c *ClassroomClient) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	body, err := c.Delete(ctx, DeleteQuestionEndpoint+id.String())
	if err != nil {
		return err
	}
	var resp api.StatusResponse
	return decode(body, &resp)
}

// SubmitCode runs code on the server and returns what it printed
func (c *ClassroomClient) SubmitCode(ctx context.Context, code string) (*api.SubmitCodeResponse, error) {
	var resp api.SubmitCodeResponse
	if err := c.sendJSON(ctx, "PUT", SubmitCodeEndpoint, api.SubmitCodeRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ClassroomClient) getJSON(ctx context.Context, endpoint string, dst any) error {
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	return decode(body, dst)
}

func (c *ClassroomClient) sendJSON(ctx context.Context, method, endpoint string, payload, dst any) error {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	body, err := c.MakeRequest(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	return decode(body, dst)
}

func decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
