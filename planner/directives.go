package planner

import "github.com/n9te9/federation-planner/schema"

// FieldVisit carries what a directive handler needs to decide whether it
// applies to the field currently being lowered.
type FieldVisit struct {
	ParentType string
	Service    string
	Meta       *schema.FieldMeta
}

// Handler is one directive's plan-time behavior. Grounded on spec.md §4.4:
// "a registry maps directive name → handler object... handle(context,
// field, field_def, parent_type, current_service, ...)"; simplified here
// to the one decision the builder actually needs from a handler — does
// this directive apply to this field visit — since the field-lowering
// mechanics a handler triggers (deferring a requiring field, resolving a
// provides subset inline) are non-trivial tree surgery better kept in the
// builder itself (resolveRequiresField in build.go, recurseLocal and
// resolveFields in fields.go), run once a handler reports it applies.
type Handler interface {
	Name() string
	Applies(v FieldVisit) bool
}

type requiresHandler struct{}

func (requiresHandler) Name() string           { return "requires" }
func (requiresHandler) Applies(v FieldVisit) bool { return v.Meta != nil && len(v.Meta.Requires) > 0 }

type providesHandler struct{}

func (providesHandler) Name() string              { return "provides" }
func (providesHandler) Applies(v FieldVisit) bool { return v.Meta != nil && len(v.Meta.Provides) > 0 }

// tagHandler is a no-op at plan time, exposed purely for extension (spec.md
// §4.4): a future consumer could read accumulated tags off the plan
// without any change to core plan logic.
type tagHandler struct{}

func (tagHandler) Name() string              { return "tag" }
func (tagHandler) Applies(v FieldVisit) bool { return v.Meta != nil && len(v.Meta.Tags) > 0 }

// DirectiveRegistry maps directive name to handler. Registration is
// additive: installing a handler for a new directive (e.g. a future
// `@deprecated` plan-time warning) never requires touching the builder's
// core traversal, only adding an entry here and a call site that consults
// it — following spec.md §4.4's extension requirement.
type DirectiveRegistry struct {
	handlers map[string]Handler
}

// NewDefaultRegistry installs the directives the builder consults:
// `requires`, `provides`, and the no-op `tag`.
func NewDefaultRegistry() *DirectiveRegistry {
	r := &DirectiveRegistry{handlers: make(map[string]Handler)}
	r.Register(requiresHandler{})
	r.Register(providesHandler{})
	r.Register(tagHandler{})
	return r
}

// Register installs or replaces the handler for h.Name().
func (r *DirectiveRegistry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

// Applies reports whether the named directive's handler considers itself
// active for this field visit. Unrecognized directive names report false
// rather than panicking (spec.md §4.4: unrecognized directives are
// ignored, forward-compatible).
func (r *DirectiveRegistry) Applies(name string, v FieldVisit) bool {
	h, ok := r.handlers[name]
	if !ok {
		return false
	}
	return h.Applies(v)
}
