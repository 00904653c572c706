// Package generation defines the boundary interface between task handlers
// and external AI/LLM providers, keeping the application core independent
// of any specific provider SDK.
package generation
