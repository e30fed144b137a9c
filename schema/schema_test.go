package schema

import (
	"errors"
	"testing"
)

func TestTroubleshootingMCUIsValid(t *testing.T) {
	s := TroubleshootingMCU()
	if err := s.Validate(); err != nil {
		t.Fatalf("default schema invalid: %v", err)
	}

	rt, ok := s.Relationship(RelErrorToCause)
	if !ok {
		t.Fatal("error_to_cause not declared")
	}
	if rt.From != EntityErrorConditions || rt.To != EntityRootCauses {
		t.Errorf("error_to_cause = %s -> %s", rt.From, rt.To)
	}
}

func TestValidate(t *testing.T) {
	base := func() Schema {
		return Schema{
			EntityTypes: []EntityType{{Name: "a"}, {Name: "b"}},
			RelationshipTypes: []RelationshipType{
				{Name: "a_to_b", From: "a", To: "b"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Schema)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Schema) {}},
		{name: "no entity types", mutate: func(s *Schema) { s.EntityTypes = nil }, wantErr: true},
		{name: "empty entity name", mutate: func(s *Schema) { s.EntityTypes[0].Name = "  " }, wantErr: true},
		{name: "duplicate entity", mutate: func(s *Schema) { s.EntityTypes[1].Name = "a" }, wantErr: true},
		{name: "unknown from", mutate: func(s *Schema) { s.RelationshipTypes[0].From = "x" }, wantErr: true},
		{name: "unknown to", mutate: func(s *Schema) { s.RelationshipTypes[0].To = "x" }, wantErr: true},
		{
			name: "duplicate relationship",
			mutate: func(s *Schema) {
				s.RelationshipTypes = append(s.RelationshipTypes, s.RelationshipTypes[0])
			},
			wantErr: true,
		},
		{
			// Pairings are declared, never derived from the name.
			name:   "name does not imply types",
			mutate: func(s *Schema) { s.RelationshipTypes[0].Name = "b_to_a" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Validate() = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestMatchesKeyword(t *testing.T) {
	s := TroubleshootingMCU()
	tests := []struct {
		title string
		want  bool
	}{
		{"7.3 Fault Handling", true},
		{"Reset Causes Summary", true},
		{"DEBUG SUBSYSTEM", true},
		{"Clock Tree", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.MatchesKeyword(tt.title); got != tt.want {
			t.Errorf("MatchesKeyword(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestNamesKeepDeclarationOrder(t *testing.T) {
	s := TroubleshootingMCU()
	got := s.EntityNames()
	want := []string{EntityErrorConditions, EntityStatusIndicators, EntityComponents, EntityRootCauses, EntitySolutions}
	if len(got) != len(want) {
		t.Fatalf("EntityNames() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EntityNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !s.HasEntityType(EntitySolutions) || s.HasEntityType("person") {
		t.Error("HasEntityType mismatch")
	}
	if rels := s.RelationshipNames(); len(rels) != 3 || rels[0] != RelIndicatorToError {
		t.Errorf("RelationshipNames() = %v", rels)
	}
}
