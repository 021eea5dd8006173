package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeSheets is an in-process stand-in for the spreadsheet script. It serves
// GET ?sheet=NAME from Rows and records POST {sheet,data} payloads.
type FakeSheets struct {
	Server *httptest.Server

	mu       sync.Mutex
	rows     map[string][]map[string]any
	appended map[string][]map[string]any
	failGet  bool
	failPost bool
	rejectN  int
	gets     int
}

// NewFakeSheets starts a fake script endpoint that is closed with the test.
func NewFakeSheets(t testing.TB) *FakeSheets {
	t.Helper()
	f := &FakeSheets{
		rows:     make(map[string][]map[string]any),
		appended: make(map[string][]map[string]any),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the script endpoint to hand to a sheets client.
func (f *FakeSheets) URL() string {
	return f.Server.URL
}

// SetRows replaces the rows served for a sheet.
func (f *FakeSheets) SetRows(sheet string, rows []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[sheet] = rows
}

// FailReads makes every GET answer 500.
func (f *FakeSheets) FailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = fail
}

// FailWrites makes every POST answer 500.
func (f *FakeSheets) FailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPost = fail
}

// RejectAfter lets n POSTs succeed and answers the rest with a script-level
// {error} body.
func (f *FakeSheets) RejectAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectN = n
	f.failPost = false
}

// Appended returns the payloads written to a sheet so far.
func (f *FakeSheets) Appended(sheet string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.appended[sheet]...)
}

// Gets counts GET requests served.
func (f *FakeSheets) Gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *FakeSheets) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		f.gets++
		if f.failGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rows := f.rows[r.URL.Query().Get("sheet")]
		if rows == nil {
			rows = []map[string]any{}
		}
		writeJSON(w, rows)
	case http.MethodPost:
		if f.failPost {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var payload struct {
			Sheet string         `json:"sheet"`
			Data  map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, map[string]any{"error": err.Error()})
			return
		}
		total := 0
		for _, rows := range f.appended {
			total += len(rows)
		}
		if f.rejectN > 0 && total >= f.rejectN {
			writeJSON(w, map[string]any{"error": "quota exceeded"})
			return
		}
		f.appended[payload.Sheet] = append(f.appended[payload.Sheet], payload.Data)
		writeJSON(w, map[string]any{"success": true, "message": "데이터가 저장되었습니다."})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
