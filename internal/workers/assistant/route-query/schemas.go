// internal/workers/assistant/route-query/schemas.go
package routequery

import "versailles-assistant/internal/common/validation"

var routingSchema = validation.MustCompileSchema("routing", `{
  "type": "object",
  "required": ["decision", "complexity", "reasoning", "confidence"],
  "properties": {
    "decision": {"type": "string", "enum": ["DIRECT_RAG", "DECOMPOSE", "CLARIFY"]},
    "complexity": {"type": "string", "enum": ["simple", "moderate", "complex"]},
    "reasoning": {"type": "string"},
    "confidence": {"type": "number"},
    "direct_query": {"type": ["string", "null"]},
    "clarification_questions": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    }
  }
}`)

var decompositionSchema = validation.MustCompileSchema("decomposition", `{
  "type": "object",
  "required": ["sub_queries"],
  "properties": {
    "sub_queries": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["query", "purpose", "priority", "dependencies", "required_sources", "expected_info"],
        "properties": {
          "query": {"type": "string", "minLength": 1},
          "purpose": {"type": "string"},
          "priority": {"type": "number"},
          "dependencies": {"type": "array", "items": {"type": "string"}},
          "required_sources": {"type": "array", "items": {"type": "string"}},
          "expected_info": {"type": "string"}
        }
      }
    }
  }
}`)
