package submission

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/energylog/internal/metrics"
	"github.com/hitoshi/energylog/internal/model"
	"github.com/hitoshi/energylog/internal/sheet"
	"github.com/hitoshi/energylog/internal/storage"
)

// --- モック定義 ---

type mockUploader struct {
	uploadFn func(ctx context.Context, fileName string, data []byte) error
	calls    int
}

func (m *mockUploader) Upload(ctx context.Context, fileName string, data []byte) error {
	m.calls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, fileName, data)
	}
	return nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

var testSession = &model.Session{ID: "sid", Username: "client1", Name: "Client One"}

// --- テスト ---

func TestBuildRecord_KeepsInputsExactly(t *testing.T) {
	inputs := []struct{ e, d float64 }{
		{0, 0},
		{0.1, 0.2},
		{123.4, 56.7},
		{1e9, 3.3},
	}

	for _, in := range inputs {
		got := BuildRecord("client1", in.e, in.d)
		want := model.ActivityRecord{Username: "client1", ElectricityKWh: in.e, DieselLitre: in.d}
		if got != want {
			t.Errorf("BuildRecord(%v, %v) = %+v, want %+v", in.e, in.d, got, want)
		}
	}
}

func TestService_Submit_Success(t *testing.T) {
	var buf bytes.Buffer
	mem := storage.NewMemory()
	reg := prometheus.NewRegistry()
	svc := NewService(mem, metrics.NewCollector(reg), newTestLogger(&buf), ServiceConfig{UploadTimeout: time.Second})

	out := svc.Submit(context.Background(), testSession, 12.5, 3.4)

	if !out.Result.OK {
		t.Fatalf("Result.OK = false, reason = %q", out.Result.Reason)
	}
	if out.FileName != "client1_data.xlsx" {
		t.Errorf("FileName = %q, want %q", out.FileName, "client1_data.xlsx")
	}

	data, ok := mem.File("client1_data.xlsx")
	if !ok {
		t.Fatal("file was not uploaded")
	}
	rec, err := sheet.Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	want := model.ActivityRecord{Username: "client1", ElectricityKWh: 12.5, DieselLitre: 3.4}
	if rec != want {
		t.Errorf("uploaded record = %+v, want %+v", rec, want)
	}
	if out.Record != want {
		t.Errorf("Outcome.Record = %+v, want %+v", out.Record, want)
	}
}

func TestService_Submit_UploadFailure_KeepsRecord(t *testing.T) {
	var buf bytes.Buffer
	up := &mockUploader{
		uploadFn: func(ctx context.Context, fileName string, data []byte) error {
			return errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
		},
	}
	svc := NewService(up, nil, newTestLogger(&buf), ServiceConfig{})

	out := svc.Submit(context.Background(), testSession, 1.5, 2.5)

	if out.Result.OK {
		t.Fatal("Result.OK = true, want false")
	}
	if out.Result.Reason != "dial tcp 127.0.0.1:1: connect: connection refused" {
		t.Errorf("Reason = %q", out.Result.Reason)
	}
	want := model.ActivityRecord{Username: "client1", ElectricityKWh: 1.5, DieselLitre: 2.5}
	if out.Record != want {
		t.Errorf("Outcome.Record = %+v, want %+v", out.Record, want)
	}
}

func TestService_Submit_EncodeFailure_SkipsUpload(t *testing.T) {
	var buf bytes.Buffer
	up := &mockUploader{}
	svc := NewService(up, nil, newTestLogger(&buf), ServiceConfig{})
	svc.encode = func(model.ActivityRecord) ([]byte, error) {
		return nil, errors.New("zip: write failed")
	}

	out := svc.Submit(context.Background(), testSession, 1, 2)

	if out.Result.OK {
		t.Fatal("Result.OK = true, want false")
	}
	if up.calls != 0 {
		t.Errorf("upload calls = %d, want 0", up.calls)
	}
}

func TestService_Submit_AppliesUploadTimeout(t *testing.T) {
	var buf bytes.Buffer
	up := &mockUploader{
		uploadFn: func(ctx context.Context, fileName string, data []byte) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("upload context should have a deadline")
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}
	svc := NewService(up, nil, newTestLogger(&buf), ServiceConfig{UploadTimeout: 20 * time.Millisecond})

	out := svc.Submit(context.Background(), testSession, 1, 2)

	if out.Result.OK {
		t.Fatal("Result.OK = true, want false")
	}
	if out.Result.Reason != context.DeadlineExceeded.Error() {
		t.Errorf("Reason = %q, want %q", out.Result.Reason, context.DeadlineExceeded.Error())
	}
}

func TestService_Submit_SequentialSubmissionsOverwrite(t *testing.T) {
	var buf bytes.Buffer
	mem := storage.NewMemory()
	svc := NewService(mem, nil, newTestLogger(&buf), ServiceConfig{})

	first := svc.Submit(context.Background(), testSession, 10, 1)
	second := svc.Submit(context.Background(), testSession, 20, 2)

	if !first.Result.OK || !second.Result.OK {
		t.Fatalf("uploads failed: %+v, %+v", first.Result, second.Result)
	}
	if mem.Uploads() != 2 {
		t.Errorf("uploads = %d, want 2", mem.Uploads())
	}
	if mem.Files() != 1 {
		t.Errorf("files = %d, want 1", mem.Files())
	}

	data, _ := mem.File("client1_data.xlsx")
	rec, err := sheet.Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	want := model.ActivityRecord{Username: "client1", ElectricityKWh: 20, DieselLitre: 2}
	if rec != want {
		t.Errorf("final remote record = %+v, want %+v", rec, want)
	}
}

func TestService_Submit_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	fail := true
	up := &mockUploader{
		uploadFn: func(ctx context.Context, fileName string, data []byte) error {
			if fail {
				return errors.New("boom")
			}
			return nil
		},
	}
	svc := NewService(up, metrics.NewCollector(reg), newTestLogger(&buf), ServiceConfig{})

	svc.Submit(context.Background(), testSession, 1, 1)
	fail = false
	svc.Submit(context.Background(), testSession, 1, 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		if len(mf.GetMetric()) > 0 && mf.GetMetric()[0].GetCounter() != nil {
			got[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if got["energylog_submissions_total"] != 2 {
		t.Errorf("submissions = %v, want 2", got["energylog_submissions_total"])
	}
	if got["energylog_upload_fail_total"] != 1 {
		t.Errorf("upload failures = %v, want 1", got["energylog_upload_fail_total"])
	}
	if got["energylog_upload_success_total"] != 1 {
		t.Errorf("upload successes = %v, want 1", got["energylog_upload_success_total"])
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"0.0", 0, false},
		{" 12.3 ", 12.3, false},
		{"100", 100, false},
		{"-0.1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e400", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAmount("electricity", tt.raw)
		if tt.wantErr {
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidInput", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) returned error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
