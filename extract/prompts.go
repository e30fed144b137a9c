package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brunobiangulo/gocvot/schema"
)

// entitySystemPrompt is filled with the system name, the entity definitions
// and the JSON list of required keys.
const entitySystemPrompt = `You are an expert in embedded systems. Your task is to extract troubleshooting information from technical manuals for the %s.
Analyze the text and identify the following entities:
%s

Respond with ONLY a single, valid JSON object containing keys for each entity type: %s.
Each key must map to an array of concise, descriptive strings.
If there are no entities of a type, use an empty array.
Do NOT include any text outside the JSON object.`

const entityUserPrompt = `Extract all relevant entities from this text chunk:

---

%s`

// relationshipSystemPrompt is filled with the relationship definitions and
// the JSON list of required keys.
const relationshipSystemPrompt = `You are an AI specializing in causal analysis of technical systems. Based on the provided text and a list of entities, map the relationships between them to determine:
%s

Respond with ONLY a single, valid JSON object with these keys: %s.
Each key maps to an object whose keys are source entities and whose values are arrays of target entities.
Use the entity strings exactly as they appear in EXTRACTED ENTITIES.
Do NOT include any text outside the JSON object.`

const relationshipUserPrompt = `Analyze the following text chunk and entities to build the causal maps.

TEXT CHUNK:
---
%s
---

EXTRACTED ENTITIES:
---
%s
---

Generate the JSON object with the relationship maps.`

const weightSystemPrompt = `You are an expert in embedded systems architecture and microcontroller troubleshooting. Your task is to analyze technical documentation and assign intelligent weights and confidence levels to causal relationships.

WEIGHT GUIDELINES (0.1-1.0) - Likelihood / Severity / Effectiveness:
- Critical Hardware Faults: 0.9-1.0 (e.g., Memory access violation, illegal instruction, watchdog reset)
- Common Software/Config Errors: 0.7-0.9 (e.g., Stack overflow, incorrect PLL setup, interrupt conflict)
- Direct & Simple Solutions: 0.8-0.9 (e.g., 'Reset the device', 'Check register X for value Y')
- Peripheral/Driver Issues: 0.5-0.7 (e.g., ADC timing, DMA transfer error)
- Complex Debugging/Solutions: 0.6-0.8 (e.g., requires analyzing memory dumps, multi-step configuration)
- Rare or Intermittent Faults: 0.3-0.6 (e.g., issues under specific thermal or voltage conditions)

CONFIDENCE GUIDELINES (0.1-1.0) - Certainty of the Relationship:
- Explicitly stated in docs: 0.9-1.0 (e.g., "If bit X is set, a bus fault has occurred.")
- Strongly implied or common knowledge: 0.7-0.9 (e.g., memory issues often caused by bad pointers)
- Logical inference from text: 0.6-0.8
- Plausible but not directly supported: 0.4-0.6

Respond with ONLY a JSON array of objects, where each object has: "from_id", "to_id", "weight", and "confidence".`

const weightUserPrompt = `Based on the provided technical documentation context, analyze the following causal relationships for the %s.

RELATIONSHIPS TO ANALYZE:
%s

---
RELEVANT TECHNICAL DOCUMENTATION CONTEXT:
%s
---

Assign a "weight" (likelihood/severity/effectiveness) and "confidence" (certainty) to each relationship. Return ONLY the JSON array.`

func entityPrompts(s schema.Schema, text string) (system, user string) {
	var defs strings.Builder
	for _, et := range s.EntityTypes {
		fmt.Fprintf(&defs, "- %s: %s\n", et.Name, et.Description)
	}
	keys, _ := json.Marshal(s.EntityNames())
	system = fmt.Sprintf(entitySystemPrompt, s.SystemName, strings.TrimRight(defs.String(), "\n"), keys)
	return system, fmt.Sprintf(entityUserPrompt, text)
}

func relationshipPrompts(s schema.Schema, text string, entities map[string][]string) (system, user string) {
	var defs strings.Builder
	for i, rt := range s.RelationshipTypes {
		desc := rt.Description
		if desc == "" {
			desc = fmt.Sprintf("Which %s lead to which %s.", rt.From, rt.To)
		}
		fmt.Fprintf(&defs, "%d. %s (%s -> %s): %s\n", i+1, rt.Name, rt.From, rt.To, desc)
	}
	keys, _ := json.Marshal(s.RelationshipNames())
	system = fmt.Sprintf(relationshipSystemPrompt, strings.TrimRight(defs.String(), "\n"), keys)

	entitiesJSON, _ := json.MarshalIndent(entities, "", "  ")
	return system, fmt.Sprintf(relationshipUserPrompt, text, entitiesJSON)
}
