package recipes

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

// ErrUnknownRecipe is returned for slugs not present in the registry.
var ErrUnknownRecipe = errors.New("unknown recipe")

// Registry holds the available recipes in library display order.
type Registry struct {
	order  []Recipe
	bySlug map[string]Recipe
}

func NewRegistry(recipes ...Recipe) *Registry {
	r := &Registry{bySlug: make(map[string]Recipe, len(recipes))}
	for _, rec := range recipes {
		if _, dup := r.bySlug[rec.Slug()]; dup {
			continue
		}
		r.order = append(r.order, rec)
		r.bySlug[rec.Slug()] = rec
	}
	return r
}

// DefaultRegistry wires the built-in workflow library.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewImageCreator(),
		NewVideoCreator(),
		NewAdVideoMaker(),
		NewContentMachine(),
	)
}

func (r *Registry) Get(slug string) (Recipe, error) {
	rec, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, slug)
	}
	return rec, nil
}

func (r *Registry) All() []Recipe {
	out := make([]Recipe, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Count() int {
	return len(r.order)
}

// ByCategory groups recipes by category, preserving registry order
// within each group.
func (r *Registry) ByCategory() map[string][]Recipe {
	grouped := make(map[string][]Recipe)
	for _, rec := range r.order {
		grouped[rec.Category()] = append(grouped[rec.Category()], rec)
	}
	return grouped
}

// SyncCatalog upserts a models.Recipe row per registered recipe so the
// DB catalog always reflects the code, which is the source of truth.
func (r *Registry) SyncCatalog() error {
	for i, rec := range r.order {
		var row models.Recipe
		err := database.DB.Where("slug = ?", rec.Slug()).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.Recipe{
				Slug:        rec.Slug(),
				Name:        rec.Name(),
				Description: rec.Description(),
				Category:    rec.Category(),
				Icon:        rec.Icon(),
				CostLabel:   rec.CostLabel(),
				IsActive:    true,
				SortOrder:   i,
			}
			if err := database.DB.Create(&row).Error; err != nil {
				return fmt.Errorf("create recipe row %s: %w", rec.Slug(), err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("load recipe row %s: %w", rec.Slug(), err)
		}

		row.Name = rec.Name()
		row.Description = rec.Description()
		row.Category = rec.Category()
		row.Icon = rec.Icon()
		row.CostLabel = rec.CostLabel()
		row.SortOrder = i
		if err := database.DB.Save(&row).Error; err != nil {
			return fmt.Errorf("update recipe row %s: %w", rec.Slug(), err)
		}
	}
	return nil
}
