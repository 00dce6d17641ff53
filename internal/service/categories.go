package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/streakd/internal/storage"
)

func (s *HabitService) CreateCategory(ctx context.Context, name, color string) (storage.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Category{}, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	c := storage.Category{
		ID:        s.newID(),
		Name:      name,
		Color:     strings.TrimSpace(color),
		CreatedAt: s.tracker.Calendar().Now().UTC(),
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return storage.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, nil
}

func (s *HabitService) ListCategories(ctx context.Context) ([]storage.Category, error) {
	return s.repo.ListCategories(ctx, storage.CategoryListFilter{})
}

// DeleteCategory detaches its habits rather than deleting them.
func (s *HabitService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return err
	}
	return nil
}
