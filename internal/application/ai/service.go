package ai

import (
	"context"
	"encoding/json"

	"github.com/bryanwahyu/codeaudit/internal/application/export"
	"github.com/bryanwahyu/codeaudit/internal/domain/ai"
)

// Service turns a findings report into a model-written triage summary.
type Service struct {
	client  ai.Client
	exports *export.Service
}

func NewService(client ai.Client, exports *export.Service) *Service {
	return &Service{client: client, exports: exports}
}

// AnalyzeRoot builds the report for one root and asks the model to triage
// it.
func (s *Service) AnalyzeRoot(ctx context.Context, root string) (string, error) {
	if s.client == nil {
		return "", ai.ErrNotConfigured
	}
	rep, err := s.exports.Build(ctx, root)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	return s.client.Analyze(ctx, string(payload))
}
