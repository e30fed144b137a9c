package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Entity type names used by the default troubleshooting schema.
const (
	EntityErrorConditions  = "error_conditions"
	EntityStatusIndicators = "status_indicators"
	EntityComponents       = "components"
	EntityRootCauses       = "root_causes"
	EntitySolutions        = "solutions"
)

// Relationship type names used by the default troubleshooting schema.
const (
	RelIndicatorToError = "indicator_to_error"
	RelErrorToCause     = "error_to_cause"
	RelCauseToSolution  = "cause_to_solution"
)

// ErrInvalid is returned by Validate for a malformed schema table.
var ErrInvalid = errors.New("schema: invalid")

// EntityType declares one node category and the definition handed to the
// entity extractor.
type EntityType struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// RelationshipType declares one edge category with its fixed endpoint types.
type RelationshipType struct {
	Name        string `json:"name" yaml:"name"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Description string `json:"description" yaml:"description"`
}

// Schema is the declared vocabulary of a CVOT. Order of EntityTypes and
// RelationshipTypes is significant: graph assembly iterates in this order.
type Schema struct {
	SystemName        string             `json:"system_name" yaml:"system_name"`
	SafetyLevel       string             `json:"safety_level" yaml:"safety_level"`
	IndexKeywords     []string           `json:"index_keywords" yaml:"index_keywords"`
	EntityTypes       []EntityType       `json:"entity_types" yaml:"entity_types"`
	RelationshipTypes []RelationshipType `json:"relationship_types" yaml:"relationship_types"`
}

// Validate checks that names are unique and non-empty and that every
// relationship references declared entity types.
func (s *Schema) Validate() error {
	if len(s.EntityTypes) == 0 {
		return fmt.Errorf("%w: no entity types", ErrInvalid)
	}
	entities := make(map[string]bool, len(s.EntityTypes))
	for _, et := range s.EntityTypes {
		name := strings.TrimSpace(et.Name)
		if name == "" {
			return fmt.Errorf("%w: empty entity type name", ErrInvalid)
		}
		if entities[name] {
			return fmt.Errorf("%w: duplicate entity type %q", ErrInvalid, name)
		}
		entities[name] = true
	}

	rels := make(map[string]bool, len(s.RelationshipTypes))
	for _, rt := range s.RelationshipTypes {
		name := strings.TrimSpace(rt.Name)
		if name == "" {
			return fmt.Errorf("%w: empty relationship type name", ErrInvalid)
		}
		if rels[name] {
			return fmt.Errorf("%w: duplicate relationship type %q", ErrInvalid, name)
		}
		rels[name] = true
		if !entities[rt.From] {
			return fmt.Errorf("%w: relationship %q: unknown from type %q", ErrInvalid, name, rt.From)
		}
		if !entities[rt.To] {
			return fmt.Errorf("%w: relationship %q: unknown to type %q", ErrInvalid, name, rt.To)
		}
	}
	return nil
}

// EntityNames returns entity type names in declaration order.
func (s *Schema) EntityNames() []string {
	names := make([]string, 0, len(s.EntityTypes))
	for _, et := range s.EntityTypes {
		names = append(names, et.Name)
	}
	return names
}

// RelationshipNames returns relationship type names in declaration order.
func (s *Schema) RelationshipNames() []string {
	names := make([]string, 0, len(s.RelationshipTypes))
	for _, rt := range s.RelationshipTypes {
		names = append(names, rt.Name)
	}
	return names
}

// HasEntityType reports whether name is a declared entity type.
func (s *Schema) HasEntityType(name string) bool {
	for _, et := range s.EntityTypes {
		if et.Name == name {
			return true
		}
	}
	return false
}

// Relationship returns the declared relationship type with the given name.
func (s *Schema) Relationship(name string) (RelationshipType, bool) {
	for _, rt := range s.RelationshipTypes {
		if rt.Name == name {
			return rt, true
		}
	}
	return RelationshipType{}, false
}

// MatchesKeyword reports whether title contains any index keyword,
// case-insensitively.
func (s *Schema) MatchesKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range s.IndexKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TroubleshootingMCU returns the default schema for microcontroller
// reference manuals.
func TroubleshootingMCU() Schema {
	return Schema{
		SystemName:  "Texas Instruments mspm0c1104 Microcontroller",
		SafetyLevel: "N/A (General Purpose MCU)",
		IndexKeywords: []string{
			"troubleshoot", "error", "fault", "exception", "debug", "interrupt", "reset causes",
		},
		EntityTypes: []EntityType{
			{Name: EntityErrorConditions, Description: "Specific hardware or software faults (e.g., 'Bus fault', 'Stack overflow')."},
			{Name: EntityStatusIndicators, Description: "Status register bits or flags indicating a state (e.g., 'NMI_FLG bit is 1', 'LPMCR.LPM = 00b')."},
			{Name: EntityComponents, Description: "Hardware modules or architectural elements (e.g., 'DMA controller', 'CPU', 'ADC', 'PLL')."},
			{Name: EntityRootCauses, Description: "The primary reasons for a fault (e.g., 'Invalid pointer dereference', 'Incorrect clock configuration')."},
			{Name: EntitySolutions, Description: "Corrective actions or debugging steps (e.g., 'Reset the device', 'Check memory allocation', 'Inspect register values')."},
		},
		RelationshipTypes: []RelationshipType{
			{Name: RelIndicatorToError, From: EntityStatusIndicators, To: EntityErrorConditions,
				Description: "Which status indicators correspond to which error conditions."},
			{Name: RelErrorToCause, From: EntityErrorConditions, To: EntityRootCauses,
				Description: "Which root causes lead to specific error conditions."},
			{Name: RelCauseToSolution, From: EntityRootCauses, To: EntitySolutions,
				Description: "Which solutions or debugging steps address which root causes."},
		},
	}
}
