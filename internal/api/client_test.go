package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stimline-cli/internal/model"
)

func TestGetExperimentByID_DecodesEnvelope(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"experiment": map[string]any{
					"id":    "e1",
					"title": "Stroop",
					"timeline": []map[string]any{
						{"id": "s1", "metadata": map[string]any{"title": "Step 1"}},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	exp, err := c.GetExperimentByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get experiment: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/experiments/e1" {
		t.Fatalf("path = %q", gotPath)
	}
	if exp.Experiment.ID != "e1" || len(exp.Experiment.Timeline) != 1 {
		t.Fatalf("unexpected payload: %+v", exp)
	}
}

func TestEnvelope_ErrorMarkerIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "experiment not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.GetExperimentByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error from envelope marker")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
}

func TestEnvelope_NullErrorIsSuccess(t *testing.T) {
	var env Response
	if err := json.Unmarshal([]byte(`{"error":null,"data":[]}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Failed() {
		t.Fatalf("null error must not count as failure")
	}
}

func TestEnvelope_ObjectErrorMessage(t *testing.T) {
	var env Response
	if err := json.Unmarshal([]byte(`{"error":{"message":"nope"}}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !env.Failed() || env.ErrorMessage() != "nope" {
		t.Fatalf("error message = %q", env.ErrorMessage())
	}
}

func TestJoinExperiment_SendsBody(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	resp, err := c.JoinExperiment(context.Background(), "e1", "u1", "1234")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.Failed() {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage())
	}
	want := map[string]string{"experimentId": "e1", "userId": "u1", "accessCode": "1234"}
	for k, v := range want {
		if body[k] != v {
			t.Fatalf("body[%s] = %q, want %q", k, body[k], v)
		}
	}
}

func TestGetUserExperiments_TransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "tok")
	_, err := c.GetUserExperiments(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestGetTasks_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []model.Task{{ID: "t1", Name: "Stroop", Type: "reaction"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	tasks, err := c.GetTasks(context.Background())
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "Stroop" {
		t.Fatalf("unexpected tasks: %v", tasks)
	}
}
