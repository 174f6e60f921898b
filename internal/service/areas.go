package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/areawizard/internal/area"
	"github.com/vbonduro/areawizard/internal/domain"
)

// AreaOverview is an area together with what has been recorded for it.
type AreaOverview struct {
	domain.Area
	Attachments domain.AttachmentStats `json:"attachments"`
	Data        domain.AreaData        `json:"data"`
}

// AreaOverviews lists every known area with its attachment stats and data.
func (s *WizardService) AreaOverviews(ctx context.Context) []AreaOverview {
	areas := s.areas.ListAreas(ctx)
	out := make([]AreaOverview, 0, len(areas))
	for _, a := range areas {
		out = append(out, s.overview(ctx, a))
	}
	return out
}

func (s *WizardService) AreaOverview(ctx context.Context, id string) (AreaOverview, error) {
	a, err := s.areas.Get(ctx, id)
	if err != nil {
		return AreaOverview{}, err
	}
	return s.overview(ctx, a), nil
}

// CreateArea registers a dynamic area outside the wizard flow.
func (s *WizardService) CreateArea(ctx context.Context, name string) (domain.Area, error) {
	a, err := s.areas.CreateDynamicArea(ctx, name)
	if err != nil {
		if errors.Is(err, area.ErrInvalidName) {
			return domain.Area{}, invalid("name", "El nombre del área no es válido")
		}
		return domain.Area{}, fmt.Errorf("failed to create area: %w", err)
	}
	return a, nil
}

func (s *WizardService) overview(ctx context.Context, a domain.Area) AreaOverview {
	return AreaOverview{
		Area:        a,
		Attachments: s.ledger.Stats(ctx, a.ID),
		Data:        s.areaData.Get(ctx, a.ID),
	}
}
