package service

import (
	"context"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/registry"
	"github.com/okian/timeattack/pkg/logger"
)

// ImportRegistry reads "steam name - real name" lines from the registry
// channel and merges them into the registry file. It returns the number of
// entries found.
func (s *Service) ImportRegistry(ctx context.Context) (int, error) {
	const op = "service.import_registry"
	if s.registryCh == nil || s.registryPath == "" {
		return 0, model.NewError(op, model.ErrConfig, ErrNoRegistryChannel)
	}

	history, err := s.registryCh.FetchHistory(ctx, s.registryLimit)
	if err != nil {
		return 0, err
	}
	// History is newest first; later lines must win.
	lines := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		lines = append(lines, history[i].Content)
	}
	found := registry.ParseLines(lines)

	_, current := s.loadRegistry(ctx)
	merged := current.Merge(found)
	data, err := merged.Encode()
	if err != nil {
		return 0, err
	}
	if err := repository.WriteFileAtomic(s.registryPath, data, 0o644); err != nil {
		return 0, model.NewError(op, model.ErrData, err)
	}
	s.logger.Info(ctx, "driver registry imported",
		logger.Int("found", len(found)),
		logger.Int("total", merged.Len()))
	return len(found), nil
}
