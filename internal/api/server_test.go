package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-analysis/internal/activity"
	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/api"
	"github.com/p-n-ai/pai-analysis/internal/course"
	"github.com/p-n-ai/pai-analysis/internal/export"
	"github.com/p-n-ai/pai-analysis/internal/export/exporttest"
	"github.com/p-n-ai/pai-analysis/internal/seminar"
)

const fullCurriculum = `{
	"sentences": [
		{"id": 1, "original": "One.", "analysis": [{"text": "One.", "color": "blue"}], "translation": "하나."},
		{"id": 2, "original": "Two.", "translation": "둘."},
		{"id": 3, "original": "Three.", "translation": "셋."},
		{"id": 4, "original": "Four.", "translation": "넷."}
	],
	"vocabulary": [{"word": "one", "meaning": "하나"}],
	"structure": {"summary": "Counting.", "sections": [{"label": "도입", "content": "Numbers."}]},
	"questions": [{"question": "Next?", "choices": ["Five", "Six"], "answer": 1, "explanation": "HIDDEN-EXPLANATION"}]
}`

type fixture struct {
	handler http.Handler
	courses *course.MemoryStore
	events  *activity.MemoryEventLogger
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newFixture(t *testing.T, opts export.Options, checks map[string]api.HealthChecker) fixture {
	t.Helper()

	courses := course.NewMemoryStore()
	courses.Put(course.Course{ID: "1", Title: "My Course", Curriculum: fullCurriculum})
	courses.Put(course.Course{ID: "2", Title: "세미나 본문분석", Curriculum: "linked_seminar:9"})
	courses.Put(course.Course{ID: "3", Title: "수능 단어장", AnalysisMaterials: []course.Material{{ID: "m1", Name: "단어장.pdf", URL: "https://cdn.example.com/m1.pdf", Type: "pdf"}}})
	courses.Put(course.Course{ID: "4", Title: "깨진 자료", Curriculum: "{broken"})
	courses.Put(course.Course{ID: "5", Title: "외부 자료", Curriculum: "linked_source:3"})
	courses.Put(course.Course{ID: "6", Title: "없는 세미나", Curriculum: "linked_seminar:404"})

	seminars := seminar.NewMemoryStore()
	seminars.Put(seminar.Seminar{ID: "9", Title: "Seminar", Program: seminar.ProgramFromText(`{"sentences":[{"original":"From a seminar."}]}`)})

	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	exporter, err := export.NewExporter(opts)
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}

	events := activity.NewMemoryEventLogger()
	srv := api.NewServer(api.Config{
		Courses:  courses,
		Resolver: analysis.NewResolver(analysis.ResolverConfig{Seminars: seminars}),
		Exporter: exporter,
		Events:   events,
		Checks:   checks,
	})
	return fixture{handler: srv.Handler(), courses: courses, events: events}
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type analysisBody struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Badge    struct {
		Label      string `json:"label"`
		StyleClass string `json:"styleClass"`
	} `json:"badge"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
	View   *struct {
		Sentences []json.RawMessage `json:"sentences"`
		Questions []struct {
			Answer      string `json:"answer"`
			Explanation string `json:"explanation"`
		} `json:"questions"`
		Truncated bool `json:"truncated"`
	} `json:"view"`
	AnalysisMaterials []course.Material `json:"analysisMaterials"`
}

func decodeAnalysis(t *testing.T, rec *httptest.ResponseRecorder) analysisBody {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body analysisBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	return body
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthz returns 200", "/healthz", http.StatusOK, `{"status":"ok"}`},
		{"readyz returns 200", "/readyz", http.StatusOK, `{"status":"ready"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.handler, http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	f := newFixture(t, export.Options{}, map[string]api.HealthChecker{
		"database": healthFunc(func(context.Context) error { return nil }),
		"cache":    healthFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := do(t, f.handler, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCourseAnalysis_Sample(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	rec := do(t, f.handler, http.MethodGet, "/api/courses/1/analysis", "", nil)
	body := decodeAnalysis(t, rec)

	if body.Status != "resolved" || body.Mode != "sample" {
		t.Errorf("status/mode = %s/%s", body.Status, body.Mode)
	}
	if body.Badge.Label != "변형문제" {
		t.Errorf("badge = %s, want 변형문제", body.Badge.Label)
	}
	if body.View == nil || len(body.View.Sentences) != 3 || !body.View.Truncated {
		t.Fatalf("view = %+v", body.View)
	}
	if strings.Contains(rec.Body.String(), "HIDDEN-EXPLANATION") || strings.Contains(rec.Body.String(), "Counting.") {
		t.Error("sample response leaks full-only content")
	}
	if body.AnalysisMaterials == nil {
		t.Error("analysisMaterials should be an empty list")
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].EventType != activity.TypePreviewed || events[0].CourseID != "1" {
		t.Errorf("events = %+v", events)
	}
}

func TestCourseAnalysis_Full(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	body := decodeAnalysis(t, do(t, f.handler, http.MethodGet, "/api/courses/1/analysis?mode=full", "", nil))
	if body.View == nil || len(body.View.Sentences) != 4 {
		t.Fatalf("view = %+v", body.View)
	}
	if q := body.View.Questions[0]; q.Answer != "1" || q.Explanation != "HIDDEN-EXPLANATION" {
		t.Errorf("question = %+v", q)
	}
}

func TestCourseAnalysis_Statuses(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	tests := []struct {
		id       string
		status   string
		hasView  bool
		material int
	}{
		{"2", "resolved", true, 0},
		{"3", "absent", false, 1},
		{"4", "corrupt", false, 0},
		{"5", "unsupported", false, 0},
		{"6", "unresolvable", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			body := decodeAnalysis(t, do(t, f.handler, http.MethodGet, "/api/courses/"+tt.id+"/analysis", "", nil))
			if body.Status != tt.status {
				t.Errorf("status = %s, want %s", body.Status, tt.status)
			}
			if (body.View != nil) != tt.hasView {
				t.Errorf("view present = %v, want %v", body.View != nil, tt.hasView)
			}
			if len(body.AnalysisMaterials) != tt.material {
				t.Errorf("materials = %+v", body.AnalysisMaterials)
			}
		})
	}
}

func TestCourseAnalysis_NotFound(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	rec := do(t, f.handler, http.MethodGet, "/api/courses/404/analysis", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertErrorCode(t, rec, "course_not_found")
}

func TestCourseBadge(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	rec := do(t, f.handler, http.MethodGet, "/api/courses/3/badge", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"label":"단어장"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	body := decodeAnalysis(t, do(t, f.handler, http.MethodPost, "/api/analysis/preview",
		`{"title":"고2 워크북","curriculum":"{\"sentences\":[{\"original\":\"x\"}]}","mode":"full"}`, nil))
	if body.Status != "resolved" || body.Mode != "full" {
		t.Errorf("status/mode = %s/%s", body.Status, body.Mode)
	}
	if body.Badge.Label != "워크북" {
		t.Errorf("badge = %s, want 워크북", body.Badge.Label)
	}

	rec := do(t, f.handler, http.MethodPost, "/api/analysis/preview", `not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertErrorCode(t, rec, "invalid_request")
}

func TestExport(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	tests := []struct {
		format      string
		contentType string
		filename    string
	}{
		{"hwpx", "application/hwp+zip", "My Course.hwpx"},
		{"doc", "application/msword", "My Course.doc"},
		{"html", "text/html; charset=utf-8", "My Course.html"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "My Course.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := do(t, f.handler, http.MethodGet, "/api/courses/1/export/"+tt.format, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := attachmentName(t, rec); got != tt.filename {
				t.Errorf("filename = %q, want %q", got, tt.filename)
			}
			if rec.Header().Get("ETag") == "" {
				t.Error("missing ETag")
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}

	exported := 0
	for _, e := range f.events.Events() {
		if e.EventType == activity.TypeExported {
			exported++
		}
	}
	if exported != len(tests) {
		t.Errorf("exported events = %d, want %d", exported, len(tests))
	}
}

func TestExport_PDF(t *testing.T) {
	f := newFixture(t, export.Options{FontPath: exporttest.HangulFont(t)}, nil)

	rec := do(t, f.handler, http.MethodGet, "/api/courses/1/export/pdf", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := attachmentName(t, rec); got != "My Course.pdf" {
		t.Errorf("filename = %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("body is not a PDF")
	}
}

func TestExport_KoreanFilename(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	rec := do(t, f.handler, http.MethodGet, "/api/courses/2/export/hwpx", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := attachmentName(t, rec); got != "세미나 본문분석.hwpx" {
		t.Errorf("filename = %q", got)
	}
}

func TestExport_NotModified(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	first := do(t, f.handler, http.MethodGet, "/api/courses/1/export/hwpx", "", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	second := do(t, f.handler, http.MethodGet, "/api/courses/1/export/hwpx", "", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Code)
	}

	other := do(t, f.handler, http.MethodGet, "/api/courses/1/export/doc", "", map[string]string{"If-None-Match": etag})
	if other.Code != http.StatusOK {
		t.Errorf("different format status = %d, want 200", other.Code)
	}

	f.courses.Put(course.Course{ID: "1", Title: "My Renamed Course", Curriculum: fullCurriculum})
	renamed := do(t, f.handler, http.MethodGet, "/api/courses/1/export/hwpx", "", map[string]string{"If-None-Match": etag})
	if renamed.Code != http.StatusOK {
		t.Fatalf("renamed course status = %d, want 200", renamed.Code)
	}
	if got := attachmentName(t, renamed); got != "My Renamed Course.hwpx" {
		t.Errorf("filename = %q", got)
	}
}

func TestExport_Errors(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"absent", "/api/courses/3/export/pdf", http.StatusNotFound, "no_preview_data"},
		{"unsupported reference", "/api/courses/5/export/pdf", http.StatusNotFound, "no_preview_data"},
		{"unresolvable seminar", "/api/courses/6/export/hwpx", http.StatusNotFound, "no_preview_data"},
		{"corrupt", "/api/courses/4/export/pdf", http.StatusUnprocessableEntity, "corrupt_analysis_data"},
		{"unknown format", "/api/courses/1/export/odt", http.StatusBadRequest, "unsupported_format"},
		{"unknown course", "/api/courses/404/export/pdf", http.StatusNotFound, "course_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.handler, http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			assertErrorCode(t, rec, tt.wantCode)
		})
	}
}

func TestExport_RendererFailure(t *testing.T) {
	tests := []struct {
		name string
		opts func(t *testing.T) export.Options
	}{
		{"no pdf font", func(t *testing.T) export.Options {
			return export.Options{}
		}},
		{"missing scratch dir", func(t *testing.T) export.Options {
			return export.Options{FontPath: exporttest.HangulFont(t), TempDir: filepath.Join(t.TempDir(), "missing")}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts(t), nil)

			rec := do(t, f.handler, http.MethodGet, "/api/courses/1/export/pdf", "", nil)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			assertErrorCode(t, rec, "export_failed")
		})
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, export.Options{}, nil)

	rec := do(t, f.handler, http.MethodGet, "/healthz", "", map[string]string{api.HeaderRequestID: "req-123"})
	if got := rec.Header().Get(api.HeaderRequestID); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}

	rec = do(t, f.handler, http.MethodGet, "/healthz", "", nil)
	if got := rec.Header().Get(api.HeaderRequestID); len(got) != 36 {
		t.Errorf("generated request id = %q, want a UUID", got)
	}
}

type panickingCourses struct{}

func (panickingCourses) GetCourse(context.Context, string) (*course.Course, error) {
	panic("storage exploded")
}

func TestRecoversPanics(t *testing.T) {
	srv := api.NewServer(api.Config{
		Courses:  panickingCourses{},
		Resolver: analysis.NewResolver(analysis.ResolverConfig{}),
	})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/courses/1/badge", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	assertErrorCode(t, rec, "internal_error")
}

func TestConcurrentExports(t *testing.T) {
	f := newFixture(t, export.Options{Now: func() time.Time { return time.Unix(0, 0) }}, nil)

	done := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- do(t, f.handler, http.MethodGet, "/api/courses/1/export/hwpx", "", nil).Code
		}()
	}
	for i := 0; i < 8; i++ {
		if code := <-done; code != http.StatusOK {
			t.Errorf("status = %d", code)
		}
	}
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("ParseMediaType() error = %v", err)
	}
	if disposition != "attachment" {
		t.Errorf("disposition = %q, want attachment", disposition)
	}
	return params["filename"]
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	if body.Error != code {
		t.Errorf("error = %q, want %q", body.Error, code)
	}
	if body.Message == "" {
		t.Error("error message is empty")
	}
}
