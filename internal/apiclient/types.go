package apiclient

import (
	"time"

	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// LoginRequest authenticates by username, not email.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Password  string  `json:"password" validate:"required,min=6"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User   users.User `json:"user"`
	Tokens Tokens     `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Template is one of the base ring shapes a design starts from.
type Template struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PreviewImage string `json:"previewImage"`
}

type MetalConfig struct {
	Fineness enums.MetalFineness `json:"fineness"`
	Color    enums.MetalColor    `json:"color"`
}

type GemstoneConfig struct {
	Type enums.GemstoneType `json:"type"`
	Size enums.GemstoneSize `json:"size"`
}

// RingDesign is the design being edited. Template and Metal are required to save.
type RingDesign struct {
	Template *Template      `json:"template"`
	Metal    *MetalConfig    `json:"metal"`
	Gemstone *GemstoneConfig `json:"gemstone"`
}

// SavedRingDesign is a design persisted by the backend.
type SavedRingDesign struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Design    RingDesign `json:"design"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Name      *string    `json:"name,omitempty"`
}

type createDesignRequest struct {
	TemplateID string          `json:"templateId"`
	Metal      MetalConfig     `json:"metal"`
	Gemstone   *GemstoneConfig `json:"gemstone,omitempty"`
	Name       *string         `json:"name,omitempty"`
}

type createDesignResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	TemplateID string          `json:"templateId"`
	Metal      MetalConfig     `json:"metal"`
	Gemstone   *GemstoneConfig `json:"gemstone"`
	Name       *string         `json:"name"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type listDesignsResponse struct {
	Designs []SavedRingDesign `json:"designs"`
	Total   int               `json:"total"`
}

type templatesResponse struct {
	Templates []Template `json:"templates"`
}
