package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/trellis/internal/models"
)

// slugRule rejects slugs that would break out of their parent's namespace.
var slugRule = validation.By(func(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, "/\\") {
		return validation.NewError("validation_slug", "must not contain a path separator")
	}
	return nil
})

// CreateModuleRequest is the request body for creating a module.
type CreateModuleRequest struct {
	Name string `json:"name"`
}

// Validate validates the request.
func (r CreateModuleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, slugRule),
	)
}

// CreateNodeRequest is the request body for creating a page or subpage.
// Parent, when set, names the page that will own the new subpage.
type CreateNodeRequest struct {
	Module string `json:"module"`
	Parent string `json:"parent,omitempty"`
	Slug   string `json:"slug"`
}

// Validate validates the request.
func (r CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Module, validation.Required, slugRule),
		validation.Field(&r.Parent, slugRule),
		validation.Field(&r.Slug, validation.Required, slugRule),
	)
}

// RenameNodeRequest is the request body for renaming a node in place.
type RenameNodeRequest struct {
	Path    string `json:"path"`
	NewSlug string `json:"new_slug"`
}

// Validate validates the request.
func (r RenameNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.NewSlug, validation.Required, slugRule),
	)
}

// SetOrderRequest is the request body for persisting an order override.
// Parent, when set, orders the subpages of that page instead of the
// module's top-level pages.
type SetOrderRequest struct {
	Parent string   `json:"parent,omitempty"`
	Slugs  []string `json:"slugs"`
}

// Validate validates the request.
func (r SetOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Parent, slugRule),
		validation.Field(&r.Slugs, validation.NotNil),
	)
}

// InvalidateRequest is the request body for explicit cache invalidation.
// An empty module clears every cache domain.
type InvalidateRequest struct {
	Module string `json:"module,omitempty"`
}

// UpdateMetadataRequest aliases the domain patch type; absent JSON keys
// leave the corresponding sidecar fields untouched.
type UpdateMetadataRequest = models.PartialMeta

// TreeResponse wraps a module tree.
type TreeResponse = models.ModuleTree

// ModuleListResponse wraps the module listing.
type ModuleListResponse struct {
	Modules []models.ModuleInfo `json:"modules"`
}

// GraphResponse wraps rendered Mermaid text.
type GraphResponse struct {
	Graph string `json:"graph"`
}
