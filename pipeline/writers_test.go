package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/leadscout/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "plumbers_in_frisco.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	rec := models.ListingRecord{
		SourceURL: "https://maps.test/place/1",
		Name:      "Acme Plumbing",
		Address:   "1 Main St",
		Phone:     "555-0100",
		Website:   "https://facebook.com/acme",
		Status:    models.StatusPlatformOnly,
	}
	if err := writer.Write([]models.ListingRecord{rec}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	want := []string{"Name", "Address", "Phone", "Website", "Email", "SourceUrl", "Status"}
	for i, col := range want {
		if rows[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][0] != "Acme Plumbing" || rows[1][5] != rec.SourceURL || rows[1][6] != "Platform Only" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestCSVWriterAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hvac_in_austin.csv")

	for i := 0; i < 2; i++ {
		writer, err := NewCSVWriter(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := writer.Write([]models.ListingRecord{record(i)}); err != nil {
			t.Fatalf("write #%d: %v", i, err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want header plus 2 records", len(rows))
	}
	if rows[1][0] != "Business 0" || rows[2][0] != "Business 1" {
		t.Fatalf("unexpected rows: %v", rows[1:])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	recs := []models.ListingRecord{record(1), record(2)}
	recs[1].Status = models.StatusFoundViaSearch
	if err := writer.Write(recs); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	var got []models.ListingRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec models.ListingRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("lines=%d, want 2", len(got))
	}
	if got[1].Status != models.StatusFoundViaSearch {
		t.Fatalf("status = %v, want FoundViaSearch", got[1].Status)
	}
}

type failingWriter struct {
	mockWriter
	err error
}

func (fw *failingWriter) Write([]models.ListingRecord) error { return fw.err }
func (fw *failingWriter) Close() error { return fw.err }

func TestMultiWriterFansOut(t *testing.T) {
	a, b := &mockWriter{}, &mockWriter{}
	mw := NewMultiWriter(a, nil, b)

	if err := mw.Write([]models.ListingRecord{record(1)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(a.written()) != 1 || len(b.written()) != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", len(a.written()), len(b.written()))
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("close counts a=%d b=%d", a.closed, b.closed)
	}
}

func TestMultiWriterErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &mockWriter{}
	mw := NewMultiWriter(&failingWriter{err: boom}, ok)

	if err := mw.Write([]models.ListingRecord{record(1)}); !errors.Is(err, boom) {
		t.Fatalf("write err = %v, want boom", err)
	}
	if len(ok.written()) != 0 {
		t.Fatalf("later writer should not receive the batch")
	}
	if err := mw.Close(); !errors.Is(err, boom) {
		t.Fatalf("close err = %v, want boom", err)
	}
	if ok.closed != 1 {
		t.Fatalf("remaining writer must still be closed")
	}
}

func TestSinkFactoryOpen(t *testing.T) {
	dir := t.TempDir()

	w, err := SinkFactory{Dir: dir}.Open("run-1", "roofers_in_austin.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := w.(*CSVWriter); !ok {
		t.Fatalf("writer = %T, want *CSVWriter", w)
	}
	w.Close()

	w, err = SinkFactory{Dir: dir, Dual: true}.Open("run-2", "roofers_in_austin.csv")
	if err != nil {
		t.Fatalf("open dual: %v", err)
	}
	if _, ok := w.(*MultiWriter); !ok {
		t.Fatalf("writer = %T, want *MultiWriter", w)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "roofers_in_austin.jsonl")); err != nil {
		t.Fatalf("jsonl twin missing: %v", err)
	}
}
