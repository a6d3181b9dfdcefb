// Package designs manages the signed-in user's saved ring designs.
package designs

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/internal/apiclient"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validators"
)

const maxDesignNameLength = 100

// Service exposes the ring design flows.
type Service interface {
	Templates(ctx context.Context) ([]apiclient.Template, error)
	Create(ctx context.Context, design apiclient.RingDesign, name string) (*apiclient.SavedRingDesign, error)
	List(ctx context.Context) ([]apiclient.SavedRingDesign, error)
	Get(ctx context.Context, id string) (*apiclient.SavedRingDesign, error)
	Delete(ctx context.Context, id string) error
}

type remoteDesigns interface {
	Templates(ctx context.Context) ([]apiclient.Template, error)
	CreateDesign(ctx context.Context, accessToken string, design apiclient.RingDesign, name *string) (*apiclient.SavedRingDesign, error)
	ListDesigns(ctx context.Context, accessToken string) ([]apiclient.SavedRingDesign, error)
	GetDesign(ctx context.Context, accessToken, id string) (*apiclient.SavedRingDesign, error)
	DeleteDesign(ctx context.Context, accessToken, id string) error
}

type tokenSource interface {
	AccessToken() (string, error)
}

// ServiceParams bundles the dependencies required to build a designs service.
type ServiceParams struct {
	API     remoteDesigns
	Session tokenSource
	Logger  *logger.Logger
}

type service struct {
	api     remoteDesigns
	session tokenSource
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, errors.New("api client required")
	}
	if params.Session == nil {
		return nil, errors.New("session store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: params.API, session: params.Session, logg: logg}, nil
}

// Templates does not require a session.
func (s *service) Templates(ctx context.Context) ([]apiclient.Template, error) {
	return s.api.Templates(ctx)
}

func (s *service) Create(ctx context.Context, design apiclient.RingDesign, name string) (*apiclient.SavedRingDesign, error) {
	if err := validateDesign(design); err != nil {
		return nil, err
	}
	token, err := s.session.AccessToken()
	if err != nil {
		return nil, err
	}

	var namePtr *string
	if trimmed := validators.SanitizeString(name, maxDesignNameLength); trimmed != "" {
		namePtr = &trimmed
	}
	saved, err := s.api.CreateDesign(ctx, token, design, namePtr)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "design_id", saved.ID), "ring design saved")
	return saved, nil
}

func (s *service) List(ctx context.Context) ([]apiclient.SavedRingDesign, error) {
	token, err := s.session.AccessToken()
	if err != nil {
		return nil, err
	}
	return s.api.ListDesigns(ctx, token)
}

func (s *service) Get(ctx context.Context, id string) (*apiclient.SavedRingDesign, error) {
	token, err := s.session.AccessToken()
	if err != nil {
		return nil, err
	}
	return s.api.GetDesign(ctx, token, strings.TrimSpace(id))
}

func (s *service) Delete(ctx context.Context, id string) error {
	token, err := s.session.AccessToken()
	if err != nil {
		return err
	}
	return s.api.DeleteDesign(ctx, token, strings.TrimSpace(id))
}

func validateDesign(design apiclient.RingDesign) error {
	if design.Template == nil || strings.TrimSpace(design.Template.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "template is required")
	}
	if design.Metal == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "metal configuration is required")
	}
	if !design.Metal.Fineness.IsValid() {
		return invalidField("metal.fineness", "must be one of [585 750 925]")
	}
	if !design.Metal.Color.IsValid() {
		return invalidField("metal.color", "must be one of [yellow_gold white_gold silver]")
	}
	if gem := design.Gemstone; gem != nil {
		if !gem.Type.IsValid() {
			return invalidField("gemstone.type", "must be one of [diamond sapphire ruby]")
		}
		if !gem.Size.IsValid() {
			return invalidField("gemstone.size", "must be one of [small medium large]")
		}
	}
	return nil
}

func invalidField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+message).
		WithDetails(map[string]string{field: message})
}
