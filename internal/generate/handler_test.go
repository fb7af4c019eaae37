package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/generations"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/shared/testutil"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// raceLostRepo passes the pre-flight read but loses the conditional increment.
type raceLostRepo struct {
	*users.MemoryRepo
}

func (raceLostRepo) IncrementCredits(ctx context.Context, userID string, ceiling int) (int, error) {
	return ceiling, users.ErrLimitReached
}

// recordingRepo keeps every created entry, anonymous ones included.
type recordingRepo struct {
	*generations.MemoryRepo
	mu      sync.Mutex
	created []generations.Entry
}

func (r *recordingRepo) Create(ctx context.Context, entry generations.Entry) error {
	r.mu.Lock()
	r.created = append(r.created, entry)
	r.mu.Unlock()
	return r.MemoryRepo.Create(ctx, entry)
}

type fixture struct {
	router  *gin.Engine
	llm     *fakeLLM
	users   *users.MemoryRepo
	history *recordingRepo
}

func newFixture(t *testing.T, userID string, repo users.Repo) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)

	f := &fixture{
		llm:     &fakeLLM{},
		users:   users.NewMemoryRepo(),
		history: &recordingRepo{MemoryRepo: generations.NewMemoryRepo()},
	}
	if repo == nil {
		repo = f.users
	}
	svc := NewService(f.llm, usage.NewEnforcer(repo), generations.NewService(f.history, nil))

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
			c.Set("userEmail", userID+"@token.example.com")
		}
		c.Next()
	})
	NewHandler(svc, 0, 0).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f *fixture) seed(t *testing.T, u users.User) {
	t.Helper()
	if err := f.users.Upsert(context.Background(), u); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func (f *fixture) entries(t *testing.T) []generations.Entry {
	t.Helper()
	f.history.mu.Lock()
	defer f.history.mu.Unlock()
	return append([]generations.Entry(nil), f.history.created...)
}

func (f *fixture) post(t *testing.T, fields map[string]string, fileName string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile("resume", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-resume", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func templateDoc(t *testing.T) []byte {
	return testutil.Docx(t, testutil.DocumentXML(
		testutil.Paragraph("Jane Doe"),
		testutil.Paragraph("{{summary_", "bullet_1}}"),
		testutil.Paragraph("{{exp2_bullet_1}}"),
		testutil.Paragraph("{{custom_slot}}"),
	), nil)
}

const goodReply = "```json\n" + `{
  "matchScore": 86,
  "resumeSummary": "Strong Go background",
  "missingKeywords": ["Terraform"],
  "insightsAndRecommendations": ["Quantify impact"],
  "replacements": {"summary_bullet_1": "Built Go services", "exp2_bullet_1": "Led migration"}
}` + "\n```"

func decodeSuccess(t *testing.T, resp *httptest.ResponseRecorder) (Response, []byte) {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body Response
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc, err := base64.StdEncoding.DecodeString(body.FileData)
	if err != nil {
		t.Fatalf("fileData is not base64: %v", err)
	}
	return body, doc
}

func errorBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestGenerateRejectsMissingInput(t *testing.T) {
	f := newFixture(t, "free-user", nil)
	f.seed(t, users.User{ID: "free-user", Plan: users.PlanFree, CreditsUsed: 1})

	cases := map[string]struct {
		fields map[string]string
		file   []byte
	}{
		"no job description": {fields: map[string]string{"jobTitle": "SRE"}, file: templateDoc(t)},
		"blank description":  {fields: map[string]string{"jobDescription": "   "}, file: templateDoc(t)},
		"no file":            {fields: map[string]string{"jobDescription": "Go"}},
		"empty file":         {fields: map[string]string{"jobDescription": "Go"}, file: []byte{}},
	}
	for name, tc := range cases {
		resp := f.post(t, tc.fields, "cv.docx", tc.file)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.Code)
		}
		if got := errorBody(t, resp)["error"]; got != "Missing job description or resume file" {
			t.Fatalf("%s: unexpected error %q", name, got)
		}
	}

	if f.llm.calls() != 0 {
		t.Fatalf("upstream must not be called, got %d calls", f.llm.calls())
	}
	u, _ := f.users.GetByID(context.Background(), "free-user")
	if u.CreditsUsed != 1 {
		t.Fatalf("credits must not change, got %d", u.CreditsUsed)
	}
	if n := len(f.entries(t)); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestGenerateQuotaExceeded(t *testing.T) {
	f := newFixture(t, "free-user", nil)
	f.seed(t, users.User{ID: "free-user", Plan: users.PlanFree, CreditsUsed: 5})
	f.llm.reply = goodReply

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", templateDoc(t))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if got := errorBody(t, resp)["error"]; got != "You have reached your limit of 5 resumes. Please upgrade to Pro." {
		t.Fatalf("unexpected error %q", got)
	}
	if f.llm.calls() != 0 {
		t.Fatalf("upstream must not be called over quota")
	}
	if n := len(f.entries(t)); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestGenerateProUserLastCredit(t *testing.T) {
	f := newFixture(t, "pro-user", nil)
	f.seed(t, users.User{ID: "pro-user", Email: "pro@example.com", Plan: users.PlanPro, CreditsUsed: 19})
	f.llm.reply = goodReply

	resp := f.post(t, map[string]string{
		"jobDescription": "Go, Postgres",
		"jobTitle":       "Backend Engineer",
		"companyName":    "Acme",
	}, "cv.docx", templateDoc(t))
	body, doc := decodeSuccess(t, resp)

	if !body.Success || body.FileName != "optimized_cv.docx" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Analysis.MatchScore != 86 || body.Analysis.ResumeSummary != "Strong Go background" {
		t.Fatalf("unexpected analysis %+v", body.Analysis)
	}
	xmlText := testutil.ReadPart(t, doc, "word/document.xml")
	for _, want := range []string{"Built Go services", "Led migration", "{{custom_slot}}"} {
		if !strings.Contains(xmlText, want) {
			t.Fatalf("document missing %q", want)
		}
	}
	if strings.Contains(xmlText, "summary_bullet_1") || strings.Contains(xmlText, "exp2_bullet_1") {
		t.Fatalf("supplied placeholders must be gone")
	}

	u, _ := f.users.GetByID(context.Background(), "pro-user")
	if u.CreditsUsed != 20 {
		t.Fatalf("expected 20 credits used, got %d", u.CreditsUsed)
	}
	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.UserEmail != "pro@example.com" || e.JobTitle != "Backend Engineer" || e.CompanyName != "Acme" || e.MatchScore != 86 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.AnalysisOutcome != "parsed" || e.RenderOutcome != "rendered" || e.Status != generations.StatusSuccess {
		t.Fatalf("unexpected outcomes %+v", e)
	}

	prompt := f.llm.prompts[0]
	if !strings.Contains(prompt, "TARGET ROLE: Backend Engineer at Acme") || !strings.Contains(prompt, "Jane Doe") {
		t.Fatalf("prompt missing role or résumé text")
	}

	// The counter is now at the ceiling.
	resp = f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", templateDoc(t))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after the last credit, got %d", resp.Code)
	}
}

func TestGenerateMalformedReplyDegrades(t *testing.T) {
	f := newFixture(t, "", nil)
	f.llm.reply = "Sorry, I cannot help with that."
	original := templateDoc(t)

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", original)
	body, doc := decodeSuccess(t, resp)

	if body.Analysis.MatchScore != 0 || len(body.Analysis.Replacements) != 0 {
		t.Fatalf("expected degraded analysis, got %+v", body.Analysis)
	}
	if !bytes.Equal(doc, original) {
		t.Fatalf("document must be unchanged when nothing was replaced")
	}
}

func TestGenerateUnclosedTagFallsBackToOriginal(t *testing.T) {
	f := newFixture(t, "", nil)
	f.llm.reply = goodReply
	original := testutil.Docx(t, testutil.DocumentXML(
		testutil.Paragraph("Jane Doe"),
		testutil.Paragraph("{{summary_bullet_1"),
	), nil)

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", original)
	body, doc := decodeSuccess(t, resp)

	if !bytes.Equal(doc, original) {
		t.Fatalf("expected the original document when rendering falls back")
	}
	if body.Analysis.MatchScore != 86 {
		t.Fatalf("analysis must survive a render fallback, got %+v", body.Analysis)
	}
	entries := f.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].RenderOutcome != "fell_back_to_original" || entries[0].AnalysisOutcome != "parsed" {
		t.Fatalf("unexpected outcomes %q/%q", entries[0].AnalysisOutcome, entries[0].RenderOutcome)
	}
}

func TestGenerateNonDocumentUpload(t *testing.T) {
	f := newFixture(t, "", nil)
	f.llm.reply = goodReply
	binary := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01}

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "photo.png", binary)
	body, doc := decodeSuccess(t, resp)

	if !bytes.Equal(doc, binary) {
		t.Fatalf("expected original bytes back for a non-document upload")
	}
	if body.FileName != "optimized_photo.png" {
		t.Fatalf("unexpected file name %q", body.FileName)
	}
	if !strings.Contains(f.llm.prompts[0], "Could not extract text. Analyze based on placeholders if present.") {
		t.Fatalf("prompt must carry the extraction fallback sentence")
	}
}

func TestGenerateAnonymousLogsSentinel(t *testing.T) {
	f := newFixture(t, "ghost", nil)
	f.llm.reply = goodReply

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", templateDoc(t))
	decodeSuccess(t, resp)

	all := f.entries(t)
	if len(all) != 1 {
		t.Fatalf("expected one log entry, got %d", len(all))
	}
	if all[0].UserID != "" || all[0].UserEmail != generations.AnonymousEmail {
		t.Fatalf("unexpected anonymous entry %+v", all[0])
	}
	if all[0].JobTitle != DefaultJobTitle || all[0].CompanyName != DefaultCompanyName {
		t.Fatalf("expected defaults, got %+v", all[0])
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	f := newFixture(t, "free-user", nil)
	f.seed(t, users.User{ID: "free-user", Plan: users.PlanFree})
	f.llm.err = &llm.UpstreamServiceError{StatusCode: 429, Message: "Resource has been exhausted (e.g. check quota)."}

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", templateDoc(t))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := errorBody(t, resp)
	if body["error"] != "Failed to generate resume" || body["message"] != "Resource has been exhausted (e.g. check quota)." {
		t.Fatalf("unexpected body %v", body)
	}
	u, _ := f.users.GetByID(context.Background(), "free-user")
	if u.CreditsUsed != 0 {
		t.Fatalf("failed generations must not consume credits")
	}
	if n := len(f.entries(t)); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestGenerateLosesConsumeRace(t *testing.T) {
	base := users.NewMemoryRepo()
	_ = base.Upsert(context.Background(), users.User{ID: "free-user", Plan: users.PlanFree, CreditsUsed: 4})
	f := newFixture(t, "free-user", raceLostRepo{base})
	f.llm.reply = goodReply

	resp := f.post(t, map[string]string{"jobDescription": "Go"}, "cv.docx", templateDoc(t))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if n := len(f.entries(t)); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestRequestValidateDefaults(t *testing.T) {
	req := Request{JobDescription: " Go ", Document: []byte("x")}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.CompanyName != DefaultCompanyName || req.JobTitle != DefaultJobTitle || req.JobDescription != "Go" {
		t.Fatalf("unexpected defaults %+v", req)
	}

	err := (&Request{Document: []byte("x")}).Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
