package service

import "strings"

// jsonSchema is the subset of JSON Schema accepted by both OpenAI
// response_format and Gemini responseSchema.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*jsonSchema `json:"properties,omitempty"`
	Items       *jsonSchema            `json:"items,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

func stringSchema(description string) *jsonSchema {
	return &jsonSchema{Type: "string", Description: description}
}

func stringListSchema(description string) *jsonSchema {
	return &jsonSchema{Type: "array", Description: description, Items: &jsonSchema{Type: "string"}}
}

func objectSchema(properties map[string]*jsonSchema, required ...string) *jsonSchema {
	return &jsonSchema{Type: "object", Properties: properties, Required: required}
}

// forGemini 返回类型名为大写的副本，Gemini 只接受 OBJECT / STRING 这种写法。
func (s *jsonSchema) forGemini() *jsonSchema {
	if s == nil {
		return nil
	}
	out := &jsonSchema{
		Type:        strings.ToUpper(s.Type),
		Description: s.Description,
		Items:       s.Items.forGemini(),
		Required:    append([]string(nil), s.Required...),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*jsonSchema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.forGemini()
		}
	}
	return out
}
