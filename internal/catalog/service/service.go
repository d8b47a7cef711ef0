// Package service provides category rule lookup and seeding.
package service

import (
	"context"
	"fmt"
	"os"

	"procurement_backend/internal/catalog/domain"
	"procurement_backend/internal/catalog/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"gopkg.in/yaml.v3"
)

// Service exposes the category rule catalog to the rest of the application.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type seedFile struct {
	Categories []domain.CategoryRule `yaml:"categories"`
}

// SeedFromFile loads category rules from a YAML file and upserts them.
// A missing file is not an error: deployments may manage rules directly.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("category rule seed file not found, skipping", "path", path)
			return nil
		}
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse category rules %s: %w", path, err)
	}

	for _, rule := range seed.Categories {
		if reason := rule.Validate(); reason != "" {
			return fmt.Errorf("invalid category rule %q: %s", rule.Category, reason)
		}
		if err := s.repo.Upsert(ctx, rule); err != nil {
			return err
		}
	}

	s.log.Info("category rules seeded", "count", len(seed.Categories), "path", path)
	return nil
}

// RuleFor returns the rule for a category, with found=false for unknown categories.
func (s *Service) RuleFor(ctx context.Context, category string) (domain.CategoryRule, bool, error) {
	if domain.NormalizeCategory(category) == "" {
		return domain.CategoryRule{}, false, nil
	}
	stored, err := s.repo.GetByCategory(ctx, category)
	if err == repository.ErrRuleNotFound {
		return domain.CategoryRule{}, false, nil
	}
	if err != nil {
		return domain.CategoryRule{}, false, err
	}
	return domain.CategoryRule{Category: stored.Category, Fields: stored.Fields}, true, nil
}

// Get returns the rule for a category or a NotFound error.
func (s *Service) Get(ctx context.Context, category string) (domain.CategoryRule, error) {
	rule, found, err := s.RuleFor(ctx, category)
	if err != nil {
		return domain.CategoryRule{}, err
	}
	if !found {
		return domain.CategoryRule{}, apperr.NotFound("category rule not found")
	}
	return rule, nil
}

// List returns all category rules.
func (s *Service) List(ctx context.Context) ([]domain.CategoryRule, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	rules := make([]domain.CategoryRule, 0, len(stored))
	for _, item := range stored {
		rules = append(rules, domain.CategoryRule{Category: item.Category, Fields: item.Fields})
	}
	return rules, nil
}
