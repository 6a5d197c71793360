package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"printful-bridge/internal/cache"
)

const (
	categoryPageSize = 100
	maxCategoryDepth = 20
	pathSeparator    = " › "
)

// Category is a node of Printful's category tree.
type Category struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// CategoryPath is a category labeled with its full ancestry.
type CategoryPath struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Categories returns the flat category list, paging through Printful until a
// short page. force skips the cache read. A failed page ends the walk; what was
// collected so far is returned but only cached when the walk finished cleanly.
func (s *Service) Categories(ctx context.Context, force bool) []Category {
	if !force {
		var cached []Category
		if hit, err := cache.GetJSON(ctx, s.cache, cache.CategoriesKey, &cached); err != nil {
			s.logger.WarnContext(ctx, "category cache read failed", slog.Any("error", err))
		} else if hit {
			return cached
		}
	}

	v, _, _ := s.group.Do(cache.CategoriesKey, func() (interface{}, error) {
		return s.fetchCategories(context.WithoutCancel(ctx)), nil
	})
	return v.([]Category)
}

func (s *Service) fetchCategories(ctx context.Context) []Category {
	categories := []Category{}
	clean := true

	for offset := 0; ; offset += categoryPageSize {
		rows, err := s.source.CatalogCategories(ctx, offset, categoryPageSize)
		if err != nil {
			s.logger.WarnContext(ctx, "category page request failed",
				slog.Int("offset", offset),
				slog.Any("error", err),
			)
			clean = false
			break
		}
		for _, r := range rows {
			categories = append(categories, Category{
				ID:       r.ID,
				ParentID: r.ParentID,
				Title:    r.Title,
				ImageURL: r.ImageURL,
			})
		}
		if len(rows) != categoryPageSize {
			break
		}
	}

	if clean && len(categories) > 0 {
		if err := cache.SetJSON(ctx, s.cache, cache.CategoriesKey, categories, cache.CategoriesTTL); err != nil {
			s.logger.WarnContext(ctx, "category cache write failed", slog.Any("error", err))
		}
	}
	return categories
}

// CategoryPaths labels each category "Root › Child › Leaf" and sorts by label,
// case-insensitively. Parent walks stop after maxCategoryDepth hops so a cycle in
// the data cannot loop forever.
func CategoryPaths(cats []Category) []CategoryPath {
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	memo := make(map[int64]string, len(cats))
	pathOf := func(id int64) string {
		if p, ok := memo[id]; ok {
			return p
		}
		var chain []string
		cur, ok := byID[id]
		for depth := 0; ok && depth < maxCategoryDepth; depth++ {
			if t := strings.TrimSpace(cur.Title); t != "" {
				chain = append([]string{t}, chain...)
			}
			if cur.ParentID == 0 {
				break
			}
			cur, ok = byID[cur.ParentID]
		}
		p := strings.Join(chain, pathSeparator)
		memo[id] = p
		return p
	}

	rows := make([]CategoryPath, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, CategoryPath{ID: c.ID, Label: pathOf(c.ID)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Label) < strings.ToLower(rows[j].Label)
	})
	return rows
}
