package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/llm"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/nvandessel/ecosim/internal/store"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Hub().Close()
	})
	return srv, ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decoding %s response %q: %v", url, data, err)
		}
	}
	return resp, out
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
	return resp
}

func TestServer_ServesHTML(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Plant Growth Rate", "Tiger", `name="steps"`} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("page missing %q", want)
		}
	}

	missing, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", missing.StatusCode)
	}
}

func TestServer_Defaults(t *testing.T) {
	custom := params.Default()
	custom.Steps = 70
	_, ts := newTestServer(t, Options{Defaults: custom})

	var out struct {
		Parameters params.Parameters `json:"parameters"`
		Bounds     []params.Range    `json:"bounds"`
	}
	getJSON(t, ts.URL+"/api/defaults", &out)
	if out.Parameters.Steps != 70 {
		t.Errorf("steps = %d, want 70", out.Parameters.Steps)
	}
	if len(out.Bounds) != len(params.Bounds()) {
		t.Errorf("bounds len = %d", len(out.Bounds))
	}
}

func TestServer_Simulate(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Post(ts.URL+"/api/simulate", "application/json", strings.NewReader(`{"steps": 20, "human_impact": 0.5}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out SimulateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Run == "" {
		t.Error("missing run id")
	}
	if out.Params.Steps != 20 || out.Params.HumanImpact != 0.5 {
		t.Errorf("params = %+v", out.Params)
	}
	if out.Params.PlantGrowthRate != 0.2 {
		t.Errorf("unspecified fields should keep defaults, got pgr %v", out.Params.PlantGrowthRate)
	}
	if out.Series.Len() != 20 || out.Summary.Steps != 20 {
		t.Errorf("series len = %d, summary steps = %d", out.Series.Len(), out.Summary.Steps)
	}
	if len(out.Insights.Verdicts) != 3 {
		t.Errorf("verdicts = %d, want 3", len(out.Insights.Verdicts))
	}
}

func TestServer_SimulateRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"out of range", `{"steps": 5000, "plant_growth_rate": 3}`},
		{"unknown field", `{"wolves": 3}`},
		{"malformed", `{"steps":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, ts.URL+"/api/simulate", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if out["error"] == nil {
				t.Error("missing error message")
			}
		})
	}

	_, out := postJSON(t, ts.URL+"/api/simulate", `{"steps": 5000, "plant_growth_rate": 3}`)
	details, _ := out["details"].([]any)
	if len(details) != 2 {
		t.Errorf("details = %v, want one entry per bad field", out["details"])
	}
}

func TestServer_Ask(t *testing.T) {
	mock := llm.NewMockClient().WithResponse("Wetlands filter water.")
	_, ts := newTestServer(t, Options{
		Assistant:  assistant.New(mock, nil, nil),
		AskLimiter: ratelimit.NewLimiter(0, 2),
	})

	resp, out := postJSON(t, ts.URL+"/api/ask", `{"question": "Why protect wetlands?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %v", resp.StatusCode, out)
	}
	if out["text"] != "Wetlands filter water." || out["tip"] != content.AssistantTip {
		t.Errorf("answer = %v", out)
	}

	resp, _ = postJSON(t, ts.URL+"/api/ask", `{"question": "   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty question status = %d, want 400", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/api/ask", `{"question": "again?"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", resp.StatusCode)
	}
}

func TestServer_AskProviderError(t *testing.T) {
	mock := llm.NewMockClient().WithError(io.ErrUnexpectedEOF)
	_, ts := newTestServer(t, Options{Assistant: assistant.New(mock, nil, nil)})

	resp, out := postJSON(t, ts.URL+"/api/ask", `{"question": "What eats algae?"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if msg, _ := out["error"].(string); !strings.HasPrefix(msg, "Error: ") {
		t.Errorf("error = %q", msg)
	}
}

func TestServer_AskWithoutAssistant(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, _ := postJSON(t, ts.URL+"/api/ask", `{"question": "hi"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestServer_Tips(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var guide map[string]any
	resp := getJSON(t, ts.URL+"/api/tips?species=snow+leopard", &guide)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if guide["species"] != "Snow Leopard" {
		t.Errorf("species = %v", guide["species"])
	}

	var missing map[string]any
	resp = getJSON(t, ts.URL+"/api/tips?species=Dodo", &missing)
	if resp.StatusCode != http.StatusNotFound || missing["error"] != content.NoGuideMessage {
		t.Errorf("missing species = %d %v", resp.StatusCode, missing)
	}

	var list map[string][]string
	getJSON(t, ts.URL+"/api/tips", &list)
	if len(list["species"]) != 10 {
		t.Errorf("species list = %v", list["species"])
	}
}

func TestServer_Quiz(t *testing.T) {
	st := store.NewMemoryStore()
	_, ts := newTestServer(t, Options{Store: st})

	var quiz struct {
		Questions []QuizItem  `json:"questions"`
		Score     store.Score `json:"score"`
	}
	getJSON(t, ts.URL+"/api/quiz", &quiz)
	if len(quiz.Questions) != 5 || quiz.Questions[0].Index != 1 {
		t.Fatalf("questions = %+v", quiz.Questions)
	}

	q := content.Default().Questions()[0]
	resp, out := postJSON(t, ts.URL+"/api/quiz", `{"question": "1", "answer": "`+q.Answer+`"}`)
	if resp.StatusCode != http.StatusOK || out["message"] != "Correct!" {
		t.Errorf("correct answer = %d %v", resp.StatusCode, out)
	}

	wrong := q.Options[0]
	if wrong == q.Answer {
		wrong = q.Options[1]
	}
	_, out = postJSON(t, ts.URL+"/api/quiz", `{"question": "1", "answer": "`+wrong+`"}`)
	if msg, _ := out["message"].(string); !strings.Contains(msg, q.Answer) {
		t.Errorf("wrong answer message = %q", msg)
	}

	score, _ := st.QuizScore(context.Background())
	if score.Correct != 1 || score.Total != 2 {
		t.Errorf("score = %+v, want 1/2", score)
	}

	resp, _ = postJSON(t, ts.URL+"/api/quiz", `{"question": "99", "answer": "x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown question status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Feedback(t *testing.T) {
	st := store.NewMemoryStore()
	_, ts := newTestServer(t, Options{Store: st})

	resp, out := postJSON(t, ts.URL+"/api/feedback", `{"message": "Love the <b>charts</b>"}`)
	if resp.StatusCode != http.StatusCreated || out["message"] != content.FeedbackThanks {
		t.Errorf("feedback = %d %v", resp.StatusCode, out)
	}

	resp, _ = postJSON(t, ts.URL+"/api/feedback", `{"message": "<br/>"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty feedback status = %d, want 400", resp.StatusCode)
	}

	fb, _ := st.ListFeedback(context.Background(), 0)
	if len(fb) != 1 || fb[0].Message != "Love the charts" {
		t.Errorf("stored feedback = %+v", fb)
	}
}

func TestServer_Resources(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	var groups []content.ResourceGroup
	getJSON(t, ts.URL+"/api/resources", &groups)
	if len(groups) != 4 {
		t.Errorf("groups = %d, want 4", len(groups))
	}
}

func TestServer_StreamsTicks(t *testing.T) {
	srv, ts := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, out := postJSON(t, ts.URL+"/api/simulate", `{"steps": 12}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("simulate status = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for i := 1; i <= 12; i++ {
		var ev TickEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("reading tick %d: %v", i, err)
		}
		if ev.Tick != i || ev.Steps != 12 || ev.Run != out["run"] {
			t.Errorf("tick %d = %+v", i, ev)
		}
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv := NewServer(Options{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}

// waitForServer polls the server until it's ready or the timeout is reached.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/api/defaults")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
