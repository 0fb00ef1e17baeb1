// Package submission はフォーム入力からレコードを組み立て、スプレッドシートとしてアップロードする。
package submission

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/energylog/internal/metrics"
	"github.com/hitoshi/energylog/internal/model"
	"github.com/hitoshi/energylog/internal/sheet"
	"github.com/hitoshi/energylog/internal/storage"
)

// Outcome は1回の送信の結果。
// アップロードの成否にかかわらずRecordは常に設定される。
type Outcome struct {
	Record   model.ActivityRecord
	FileName string
	Result   model.UploadResult
}

// ServiceConfig は送信サービスの設定。
type ServiceConfig struct {
	// UploadTimeout はアップロード1回あたりの上限時間。
	UploadTimeout time.Duration
}

// Service は送信処理を提供する。
// 処理はすべて同期的に行い、リトライやキューイングは行わない。
type Service struct {
	uploader storage.Uploader
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	config   ServiceConfig
	encode   func(model.ActivityRecord) ([]byte, error)
}

// NewService はServiceを生成する。
func NewService(uploader storage.Uploader, mc metrics.MetricsCollector, logger *slog.Logger, config ServiceConfig) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uploader: uploader,
		metrics:  mc,
		logger:   logger,
		config:   config,
		encode:   sheet.Encode,
	}
}

// BuildRecord は入力値をそのままレコードに格納する。丸めや変換は行わない。
func BuildRecord(username string, electricityKWh, dieselLitre float64) model.ActivityRecord {
	return model.ActivityRecord{
		Username:       username,
		ElectricityKWh: electricityKWh,
		DieselLitre:    dieselLitre,
	}
}

// Submit はレコードを組み立ててスプレッドシートに変換し、アップロードする。
// エンコードやアップロードの失敗はOutcome.Resultに格納し、エラーとしては返さない。
func (s *Service) Submit(ctx context.Context, session *model.Session, electricityKWh, dieselLitre float64) Outcome {
	s.metrics.RecordSubmission()

	rec := BuildRecord(session.Username, electricityKWh, dieselLitre)
	out := Outcome{
		Record:   rec,
		FileName: sheet.FileName(session.Username),
	}

	data, err := s.encode(rec)
	if err != nil {
		s.logger.Error("failed to encode spreadsheet",
			slog.String("username", session.Username),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordUploadFailure()
		out.Result = model.UploadFailed(err)
		return out
	}

	if s.config.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.UploadTimeout)
		defer cancel()
	}

	start := time.Now()
	err = s.uploader.Upload(ctx, out.FileName, data)
	s.metrics.RecordUploadLatency(time.Since(start))

	if err != nil {
		s.logger.Error("upload failed",
			slog.String("username", session.Username),
			slog.String("file", out.FileName),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordUploadFailure()
		out.Result = model.UploadFailed(err)
		return out
	}

	s.logger.Info("upload succeeded",
		slog.String("username", session.Username),
		slog.String("file", out.FileName),
	)
	s.metrics.RecordUploadSuccess()
	out.Result = model.UploadSucceeded()
	return out
}

// ParseAmount はフォーム入力を非負の数値として解釈する。
// 空欄は0として扱う。
func ParseAmount(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.InputError{Field: field, Reason: "must be a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &model.InputError{Field: field, Reason: "must be a finite number"}
	}
	if v < 0 {
		return 0, &model.InputError{Field: field, Reason: fmt.Sprintf("must not be negative (got %s)", raw)}
	}
	return v, nil
}
