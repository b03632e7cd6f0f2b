package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"

	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
)

// DefaultLayout positions the fields on an image template. Any roster column
// can be placed by adding "<column>_position": [x, y].
func DefaultLayout() map[string]any {
	return map[string]any{
		"qr_position":      []any{1000, 800},
		"qr_size":          150,
		"font_size":        36,
		"font_size_small":  24,
		"name_position":    []any{100, 200},
		"cert_no_position": []any{100, 260},
		"date_position":    []any{100, 320},
	}
}

type TemplateService struct {
	store  storage.Store
	mirror AssetMirror
	dir    string
	log    *logger.Logger
}

func NewTemplateService(store storage.Store, mirror AssetMirror, dir string, log *logger.Logger) *TemplateService {
	return &TemplateService{store: store, mirror: mirror, dir: dir, log: log}
}

// Upload stores a template asset. layoutJSON overrides individual layout keys;
// if it does not parse, the defaults are used unchanged.
func (s *TemplateService) Upload(ctx context.Context, uploader, filename string, content []byte, layoutJSON string) (*models.Template, error) {
	if len(content) == 0 {
		return nil, invalidInput("No file provided")
	}
	ext, contentType, err := utils.AssetContentType(filename)
	if err != nil {
		return nil, invalidInput("%s", err.Error())
	}

	layout := DefaultLayout()
	if strings.TrimSpace(layoutJSON) != "" {
		var custom map[string]any
		if err := json.Unmarshal([]byte(layoutJSON), &custom); err != nil {
			s.log.Warn("Template service: layout ignored", "error", err)
		} else {
			for k, v := range custom {
				layout[k] = v
			}
		}
	}

	id := uuid.NewString()
	name := "template_" + id
	if base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))); base != "" {
		name += "-" + base
	}
	name += ext

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}

	t := &models.Template{
		ID:         id,
		Filename:   name,
		Layout:     datatypes.JSONMap(layout),
		UploadedBy: uploader,
		UploadedAt: time.Now().UTC(),
	}
	if s.mirror != nil {
		if publicURL, err := s.mirror.Upload("templates/"+name, content, contentType); err != nil {
			s.log.Warn("Template service: mirror upload failed", "template_id", id, "error", err)
		} else {
			t.PublicURL = publicURL
		}
	}

	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, uploader string) ([]models.Template, error) {
	out, err := s.store.ListTemplates(ctx, uploader)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}
