package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/infrastructure/config"
)

// NewReceiptStorage returns the storage selected by cfg.Provider. The S3
// bucket is created when missing.
func NewReceiptStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (transferenciaapp.ReceiptStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "s3":
		s, err := NewS3ReceiptStorage(cfg,
			WithLogger(logger.Named("storage")),
			WithPresignExpiration(cfg.PresignExpiration))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Receipt storage ready", zap.String("provider", "s3"), zap.String("bucket", s.Bucket()))
		return s, nil
	case "", "stub":
		logger.Warn("Using in-memory receipt storage; files are lost on restart")
		return NewMemoryReceiptStorage(""), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
