package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// HealthService probes the remote backend with the cheapest authenticated
// call available, so /health reflects credential and connectivity problems
// before a submission trips over them.
type HealthService struct {
	sheets  driven.SheetClient
	timeout time.Duration
}

// NewHealthService creates a HealthService with a per-probe timeout.
func NewHealthService(sheets driven.SheetClient) *HealthService {
	return &HealthService{
		sheets:  sheets,
		timeout: 5 * time.Second,
	}
}

// Check lists the spreadsheet's sheets through the authenticated client.
// Any failure, auth included, marks the backend unreachable.
func (s *HealthService) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.sheets.ListSheets(ctx); err != nil {
		return fmt.Errorf("spreadsheet backend unreachable: %w", err)
	}
	return nil
}
