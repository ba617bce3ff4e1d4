// Package brief holds the structured project brief: per-field provenance and
// confidence, the roadmap, uploaded attachments, and the Store that owns all
// mutation of them. The Store is an explicit state container with
// subscribe/notify semantics so consumers observe changes without holding a
// mutable copy of the state.
package brief

// FieldSource records where a field's current value came from.
type FieldSource string

// Field provenance values.
const (
	SourceAIGenerated FieldSource = "ai-generated"
	SourceUserEdited  FieldSource = "user-edited"
	SourceHybrid      FieldSource = "hybrid"
)

// Field is a single brief field with provenance and confidence metadata.
// Invalid values are stored and flagged rather than rejected, so a consumer
// can still display what the user attempted.
type Field[T any] struct {
	Value      T           `json:"value"`
	Confidence float64     `json:"confidence"`
	Source     FieldSource `json:"source,omitempty"`
	Updating   bool        `json:"is_updating"`
	Valid      bool        `json:"is_valid"`
	Error      string      `json:"error,omitempty"`
}

// FieldName identifies one of the brief's editable fields.
type FieldName string

// Editable brief fields.
const (
	FieldProjectName  FieldName = "name"
	FieldProjectType  FieldName = "type"
	FieldDescription  FieldName = "description"
	FieldObjective    FieldName = "objective"
	FieldDeliverables FieldName = "key_deliverables"
	FieldRoadmap      FieldName = "roadmap"
)

// ProjectTypes lists the recognized project type values. An unrecognized
// type is stored but flagged invalid.
var ProjectTypes = []string{"web-app", "mobile-app", "api", "cli-tool", "library", "other"}

// maxNameLength bounds the project name; longer values are flagged, not cut.
const maxNameLength = 120

func knownProjectType(v string) bool {
	for _, t := range ProjectTypes {
		if t == v {
			return true
		}
	}
	return false
}

// validateString returns a validity flag and error message for a string
// field value. Validation never rejects; callers store the value either way.
func validateString(field FieldName, value string) (bool, string) {
	switch field {
	case FieldProjectName:
		if value == "" {
			return false, "project name must not be empty"
		}
		if len(value) > maxNameLength {
			return false, "project name exceeds 120 characters"
		}
	case FieldProjectType:
		if !knownProjectType(value) {
			return false, "unknown project type: " + value
		}
	case FieldObjective, FieldDescription:
		if value == "" {
			return false, "value must not be empty"
		}
	}
	return true, ""
}
